package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypePreAlertConfirmed NotificationType = "prealert_confirmed"
	NotificationTypeStatusUpdate      NotificationType = "status_update"
	NotificationTypeArrivedWithCost   NotificationType = "arrived_with_cost"
	NotificationTypePackageDelivered  NotificationType = "package_delivered"
	NotificationTypeMissingPreAlert   NotificationType = "missing_prealert"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePreAlertConfirmed,
	NotificationTypeStatusUpdate,
	NotificationTypeArrivedWithCost,
	NotificationTypePackageDelivered,
	NotificationTypeMissingPreAlert,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
