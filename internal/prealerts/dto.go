package prealerts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// Actor carries the authenticated caller identity into service operations.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
	Branch *string
}

// CreateInput captures the fields a customer submits for a new pre-alert.
type CreateInput struct {
	UserID          uuid.UUID
	Courier         string
	CarrierTracking string
	Description     string
	DeclaredValue   decimal.Decimal
}

// UpdateInput is a partial patch; nil fields retain their prior value.
type UpdateInput struct {
	Courier         *string
	CarrierTracking *string
	Description     *string
	DeclaredValue   *decimal.Decimal
}

// ListFilters narrows pre-alert listings.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.PreAlertStatus
}

// PreAlertList is one page of pre-alerts plus the cursor for the next page.
type PreAlertList struct {
	Items      []models.PreAlert
	NextCursor string
}
