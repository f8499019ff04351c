package enums

import "fmt"

// PreAlertStatus tracks whether a pre-alert has been matched to a received package.
type PreAlertStatus string

const (
	PreAlertStatusUnconfirmed PreAlertStatus = "unconfirmed"
	PreAlertStatusConfirmed   PreAlertStatus = "confirmed"
)

var validPreAlertStatuses = []PreAlertStatus{
	PreAlertStatusUnconfirmed,
	PreAlertStatusConfirmed,
}

// String implements fmt.Stringer.
func (p PreAlertStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PreAlertStatus.
func (p PreAlertStatus) IsValid() bool {
	for _, candidate := range validPreAlertStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePreAlertStatus converts raw input into a PreAlertStatus.
func ParsePreAlertStatus(value string) (PreAlertStatus, error) {
	for _, candidate := range validPreAlertStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pre-alert status %q", value)
}
