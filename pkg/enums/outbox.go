package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregatePreAlert     OutboxAggregateType = "prealert"
	AggregatePackage      OutboxAggregateType = "package"
	AggregateTransfer     OutboxAggregateType = "transfer"
	AggregateDelivery     OutboxAggregateType = "delivery"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePreAlert,
	AggregatePackage,
	AggregateTransfer,
	AggregateDelivery,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPreAlertConfirmed      OutboxEventType = "prealert_confirmed"
	EventPackageStatusChanged   OutboxEventType = "package_status_changed"
	EventPackageArrivedWithCost OutboxEventType = "package_arrived_with_cost"
	EventPackageDelivered       OutboxEventType = "package_delivered"
	EventMissingPreAlertNotice  OutboxEventType = "missing_prealert_notice"
	EventTransferDispatched     OutboxEventType = "transfer_dispatched"
	EventTransferArrived        OutboxEventType = "transfer_arrived"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPreAlertConfirmed,
	EventPackageStatusChanged,
	EventPackageArrivedWithCost,
	EventPackageDelivered,
	EventMissingPreAlertNotice,
	EventTransferDispatched,
	EventTransferArrived,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
