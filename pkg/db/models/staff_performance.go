package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StaffPerformance is a per-staff daily rollup of processed work. One row
// exists per staff member per day.
type StaffPerformance struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StaffID             uuid.UUID       `gorm:"column:staff_id;type:uuid;not null;uniqueIndex:uidx_staff_performance_day"`
	Date                time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:uidx_staff_performance_day"`
	PackagesProcessed   int             `gorm:"column:packages_processed;not null;default:0"`
	DeliveriesCompleted int             `gorm:"column:deliveries_completed;not null;default:0"`
	TransfersCreated    int             `gorm:"column:transfers_created;not null;default:0"`
	PreAlertsConfirmed  int             `gorm:"column:prealerts_confirmed;not null;default:0"`
	NotificationsSent   int             `gorm:"column:notifications_sent;not null;default:0"`
	RevenueGenerated    decimal.Decimal `gorm:"column:revenue_generated;type:numeric(12,2);not null;default:0"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
