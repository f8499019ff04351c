package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// Package is the core shipment record tracked through the forwarding pipeline.
// Version backs optimistic concurrency on status transitions.
type Package struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageID      string              `gorm:"column:package_id;not null;uniqueIndex:uidx_packages_package_id"`
	TrackingNumber string              `gorm:"column:tracking_number;not null;uniqueIndex:uidx_packages_tracking_number"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	PreAlertID     *uuid.UUID          `gorm:"column:prealert_id;type:uuid"`
	Description    string              `gorm:"column:description;not null"`
	Dimensions     *string             `gorm:"column:dimensions"`
	WeightLbs      decimal.Decimal     `gorm:"column:weight_lbs;type:numeric(10,2);not null"`
	Cost           decimal.Decimal     `gorm:"column:cost;type:numeric(12,2);not null"`
	FinalCost      *decimal.Decimal    `gorm:"column:final_cost;type:numeric(12,2)"`
	Status         enums.PackageStatus `gorm:"column:status;not null;default:'Processing'"`
	Branch         string              `gorm:"column:branch;not null"`
	Version        int                 `gorm:"column:version;not null;default:1"`
	CreatedBy      uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
