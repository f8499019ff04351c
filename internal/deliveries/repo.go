package deliveries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a delivery repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPackage(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	var record models.Package
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdatePackageStatus(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Package{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) InsertDelivery(ctx context.Context, record *models.Delivery) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) InsertTrackingEvent(ctx context.Context, event *models.PackageTrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) InsertPayment(ctx context.Context, record *models.Payment) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) InsertPackagePayment(ctx context.Context, record *models.PackagePayment) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ReadyForPickup(ctx context.Context, branch *string) ([]models.Package, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.PackageStatusReadyForPickup)
	if branch != nil {
		query = query.Where("branch = ?", *branch)
	}

	var rows []models.Package
	err := query.
		Order("user_id").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) DeliveriesBetween(ctx context.Context, from, to time.Time, staffID *uuid.UUID) ([]DeliveryRecord, error) {
	query := r.db.WithContext(ctx).
		Where("delivered_at >= ? AND delivered_at < ?", from, to)
	if staffID != nil {
		query = query.Where("delivered_by = ?", *staffID)
	}

	var rows []models.Delivery
	err := query.
		Order("delivered_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	packageIDs := make([]uuid.UUID, 0, len(rows))
	for _, delivery := range rows {
		packageIDs = append(packageIDs, delivery.PackageID)
	}
	var pkgs []models.Package
	if err := r.db.WithContext(ctx).Where("id IN ?", packageIDs).Find(&pkgs).Error; err != nil {
		return nil, err
	}
	packagesByID := map[uuid.UUID]models.Package{}
	for _, pkg := range pkgs {
		packagesByID[pkg.ID] = pkg
	}

	records := make([]DeliveryRecord, 0, len(rows))
	for _, delivery := range rows {
		record := DeliveryRecord{Delivery: delivery}
		if pkg, ok := packagesByID[delivery.PackageID]; ok {
			record.Package = pkg
			if pkg.FinalCost != nil {
				record.Amount = *pkg.FinalCost
			}
		}
		records = append(records, record)
	}
	return records, nil
}
