package notifications

import (
	"github.com/google/uuid"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// Actor carries the authenticated caller identity into service operations.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
	Branch *string
}

// ListFilters narrows a notification listing.
type ListFilters struct {
	UnreadOnly bool
}

// NotificationList is one page of a user's notifications plus the cursor for
// the next page.
type NotificationList struct {
	Items      []models.Notification
	NextCursor string
}
