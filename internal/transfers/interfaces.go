package transfers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

// Repository defines persistence operations for transfer manifests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTransfer(ctx context.Context, record *models.Transfer) (*models.Transfer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*TransferList, error)
	UpdateTransfer(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteTransfer(ctx context.Context, id uuid.UUID) error
	InsertMembership(ctx context.Context, record *models.TransferPackage) error
	FindMembership(ctx context.Context, transferID, packageID uuid.UUID) (*models.TransferPackage, error)
	ListMemberships(ctx context.Context, transferID uuid.UUID) ([]ManifestEntry, error)
	UpdateMembership(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// DeleteMembership reports how many join rows were removed.
	DeleteMembership(ctx context.Context, transferID, packageID uuid.UUID) (int64, error)
	DeleteMemberships(ctx context.Context, transferID uuid.UUID) error
	// ActiveMemberships returns the subset of packageIDs already claimed by a
	// transfer in an active state, excluding excludeTransferID when non-nil.
	ActiveMemberships(ctx context.Context, packageIDs []uuid.UUID, excludeTransferID *uuid.UUID) ([]uuid.UUID, error)
	CountUnchecked(ctx context.Context, transferID uuid.UUID) (int64, error)
}
