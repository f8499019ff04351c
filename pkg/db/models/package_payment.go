package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PackagePayment allocates a payment amount against a package.
type PackagePayment struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageID uuid.UUID       `gorm:"column:package_id;type:uuid;not null;uniqueIndex:uidx_package_payments_allocation"`
	PaymentID uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:uidx_package_payments_allocation"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
