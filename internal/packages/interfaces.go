package packages

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

// Repository defines persistence operations for packages and their audit rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.Package) (*models.Package, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Package, error)
	FindByTracking(ctx context.Context, trackingNumber string) (*models.Package, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*PackageList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// UpdateStatus applies updates only when the stored version still matches
	// and reports how many rows matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	InsertTrackingEvent(ctx context.Context, event *models.PackageTrackingEvent) error
	ListTrackingEvents(ctx context.Context, packageID uuid.UUID) ([]models.PackageTrackingEvent, error)
	InsertNotice(ctx context.Context, notice *models.PackageNotice) error
	HasDelivery(ctx context.Context, packageID uuid.UUID) (bool, error)
}
