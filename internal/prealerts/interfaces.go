package prealerts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

// Repository defines persistence operations for pre-alert records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PreAlert) (*models.PreAlert, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PreAlert, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*PreAlertList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}
