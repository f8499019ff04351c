package enums

import "fmt"

// PackageStatus tracks a package through the forwarding pipeline. Values are
// stored verbatim, so they double as the customer-facing status labels.
type PackageStatus string

const (
	PackageStatusProcessing        PackageStatus = "Processing"
	PackageStatusOverseasWarehouse PackageStatus = "Delivered to Overseas Warehouse"
	PackageStatusInTransit         PackageStatus = "In Transit to Jamaica"
	PackageStatusArrivedInJamaica  PackageStatus = "Arrived in Jamaica"
	PackageStatusArrivedAtBranch   PackageStatus = "Arrived at Selected Branch"
	PackageStatusReadyForPickup    PackageStatus = "Ready For Pickup"
	PackageStatusOutForDelivery    PackageStatus = "Out For Delivery"
	PackageStatusDelivered         PackageStatus = "Delivered"
)

// orderedPackageStatuses defines the canonical pipeline order. A transition is
// forward when the target index is at or past the current index.
var orderedPackageStatuses = []PackageStatus{
	PackageStatusProcessing,
	PackageStatusOverseasWarehouse,
	PackageStatusInTransit,
	PackageStatusArrivedInJamaica,
	PackageStatusArrivedAtBranch,
	PackageStatusReadyForPickup,
	PackageStatusOutForDelivery,
	PackageStatusDelivered,
}

// String implements fmt.Stringer.
func (p PackageStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PackageStatus.
func (p PackageStatus) IsValid() bool {
	return p.Index() >= 0
}

// Index returns the position of the status in the pipeline, or -1 when unknown.
func (p PackageStatus) Index() int {
	for i, candidate := range orderedPackageStatuses {
		if candidate == p {
			return i
		}
	}
	return -1
}

// IsForwardOf reports whether moving from other to p keeps the pipeline order.
// Equal positions count as forward so repeated writes of the same status stay legal.
func (p PackageStatus) IsForwardOf(other PackageStatus) bool {
	pi, oi := p.Index(), other.Index()
	if pi < 0 || oi < 0 {
		return false
	}
	return pi >= oi
}

// IsTerminal reports whether the status ends the pipeline.
func (p PackageStatus) IsTerminal() bool {
	return p == PackageStatusDelivered
}

// ParsePackageStatus converts raw input into a PackageStatus.
func ParsePackageStatus(value string) (PackageStatus, error) {
	for _, candidate := range orderedPackageStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package status %q", value)
}

// PackageStatuses returns the pipeline in canonical order.
func PackageStatuses() []PackageStatus {
	out := make([]PackageStatus, len(orderedPackageStatuses))
	copy(out, orderedPackageStatuses)
	return out
}
