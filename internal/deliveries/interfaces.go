package deliveries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
)

// Repository defines persistence operations for the settlement transaction and
// its reporting queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPackage(ctx context.Context, id uuid.UUID) (*models.Package, error)
	// UpdatePackageStatus applies updates only when the stored version still
	// matches and reports how many rows matched.
	UpdatePackageStatus(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (int64, error)
	InsertDelivery(ctx context.Context, record *models.Delivery) error
	InsertTrackingEvent(ctx context.Context, event *models.PackageTrackingEvent) error
	InsertPayment(ctx context.Context, record *models.Payment) error
	InsertPackagePayment(ctx context.Context, record *models.PackagePayment) error
	ReadyForPickup(ctx context.Context, branch *string) ([]models.Package, error)
	ListUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	// DeliveriesBetween returns deliveries in [from, to), optionally limited to
	// one staff member, newest first.
	DeliveriesBetween(ctx context.Context, from, to time.Time, staffID *uuid.UUID) ([]DeliveryRecord, error)
}
