package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

// Repository defines persistence for in-app notifications.
type Repository interface {
	Insert(ctx context.Context, record *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*NotificationList, error)
	// MarkRead flips one notification to read and reports how many rows
	// matched. The user scope keeps callers from reading each other's rows.
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkEmailSent(ctx context.Context, id uuid.UUID) error
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}
