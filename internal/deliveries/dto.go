package deliveries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
)

// Actor carries the authenticated caller identity into service operations.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
	Branch *string
}

func (a Actor) ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, Branch: a.Branch, Role: a.Role.String()}
}

// DeliverInput settles and hands over one package.
type DeliverInput struct {
	PackageID  uuid.UUID
	ReceivedBy string
	Method     enums.PaymentMethod
	Notes      *string
}

// DeliveryReceipt is returned once the handover and payment are durable.
type DeliveryReceipt struct {
	DeliveryID      uuid.UUID
	PackageID       uuid.UUID
	PackageRef      string
	TransactionID   string
	DeliveredAt     time.Time
	ReceivedBy      string
	AmountCollected decimal.Decimal
}

// CustomerGroup is one customer's ready-for-pickup packages with the amount
// owed across them.
type CustomerGroup struct {
	CustomerID    uuid.UUID
	CustomerName  string
	CustomerEmail string
	Packages      []models.Package
	TotalDue      decimal.Decimal
}

// DeliveryRecord pairs a delivery with its package and collected amount.
type DeliveryRecord struct {
	Delivery models.Delivery
	Package  models.Package
	Amount   decimal.Decimal
}

// DaySummary aggregates a day's completed deliveries.
type DaySummary struct {
	Date      time.Time
	Count     int
	Collected decimal.Decimal
	Records   []DeliveryRecord
}
