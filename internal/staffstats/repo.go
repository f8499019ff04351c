package staffstats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a staff activity repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertAction(ctx context.Context, record *models.StaffAction) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) BumpDaily(ctx context.Context, staffID uuid.UUID, day time.Time, delta Delta) error {
	row := models.StaffPerformance{
		ID:                  uuid.New(),
		StaffID:             staffID,
		Date:                day,
		PackagesProcessed:   delta.PackagesProcessed,
		DeliveriesCompleted: delta.DeliveriesCompleted,
		TransfersCreated:    delta.TransfersCreated,
		PreAlertsConfirmed:  delta.PreAlertsConfirmed,
		NotificationsSent:   delta.NotificationsSent,
		RevenueGenerated:    delta.Revenue,
	}

	assignments := map[string]any{"updated_at": time.Now()}
	if delta.PackagesProcessed != 0 {
		assignments["packages_processed"] = gorm.Expr("packages_processed + ?", delta.PackagesProcessed)
	}
	if delta.DeliveriesCompleted != 0 {
		assignments["deliveries_completed"] = gorm.Expr("deliveries_completed + ?", delta.DeliveriesCompleted)
	}
	if delta.TransfersCreated != 0 {
		assignments["transfers_created"] = gorm.Expr("transfers_created + ?", delta.TransfersCreated)
	}
	if delta.PreAlertsConfirmed != 0 {
		assignments["prealerts_confirmed"] = gorm.Expr("prealerts_confirmed + ?", delta.PreAlertsConfirmed)
	}
	if delta.NotificationsSent != 0 {
		assignments["notifications_sent"] = gorm.Expr("notifications_sent + ?", delta.NotificationsSent)
	}
	if !delta.Revenue.IsZero() {
		assignments["revenue_generated"] = gorm.Expr("revenue_generated + ?", delta.Revenue)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "staff_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
}

func (r *repository) ListActions(ctx context.Context, staffID uuid.UUID, limit int) ([]models.StaffAction, error) {
	var rows []models.StaffAction
	err := r.db.WithContext(ctx).
		Where("staff_id = ?", staffID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DailyRange(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]models.StaffPerformance, error) {
	var rows []models.StaffPerformance
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND date >= ? AND date < ?", staffID, from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
