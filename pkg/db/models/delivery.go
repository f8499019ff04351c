package models

import (
	"time"

	"github.com/google/uuid"
)

// Delivery records the handover of a package. At most one delivery may exist
// per package.
type Delivery struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageID   uuid.UUID `gorm:"column:package_id;type:uuid;not null;uniqueIndex:uidx_deliveries_package_id"`
	DeliveredBy uuid.UUID `gorm:"column:delivered_by;type:uuid;not null;index"`
	ReceivedBy  string    `gorm:"column:received_by;not null"`
	Notes       *string   `gorm:"column:notes"`
	DeliveredAt time.Time `gorm:"column:delivered_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
