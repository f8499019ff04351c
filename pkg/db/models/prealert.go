package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// PreAlert captures a customer's advance notice of an inbound shipment.
type PreAlert struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Courier           string               `gorm:"column:courier;not null;default:''"`
	CarrierTracking   string               `gorm:"column:carrier_tracking;not null;index"`
	Description       string               `gorm:"column:description;not null"`
	DeclaredValue     decimal.Decimal      `gorm:"column:declared_value;type:numeric(12,2);not null"`
	Status            enums.PreAlertStatus `gorm:"column:status;type:prealert_status;not null;default:'unconfirmed'"`
	ReceiptObjectPath *string              `gorm:"column:receipt_object_path"`
	PackageID         *uuid.UUID           `gorm:"column:package_id;type:uuid"`
	ConfirmedBy       *uuid.UUID           `gorm:"column:confirmed_by;type:uuid"`
	ConfirmedAt       *time.Time           `gorm:"column:confirmed_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table aligned with the migration DDL.
func (PreAlert) TableName() string {
	return "prealerts"
}
