package enums

import "fmt"

// TransferStatus tracks the lifecycle of a branch transfer manifest.
type TransferStatus string

const (
	TransferStatusCreated   TransferStatus = "created"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusDelivered TransferStatus = "delivered"
	TransferStatusCancelled TransferStatus = "cancelled"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusCreated,
	TransferStatusInTransit,
	TransferStatusDelivered,
	TransferStatusCancelled,
}

// String implements fmt.Stringer.
func (t TransferStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TransferStatus.
func (t TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the manifest can no longer change.
func (t TransferStatus) IsTerminal() bool {
	return t == TransferStatusDelivered || t == TransferStatusCancelled
}

// IsActive reports whether the manifest still claims its packages.
func (t TransferStatus) IsActive() bool {
	return t == TransferStatusCreated || t == TransferStatusInTransit
}

// ParseTransferStatus converts raw input into a TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
