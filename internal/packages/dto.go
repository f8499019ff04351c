package packages

import (
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

// CreateInput captures the fields staff submit when intaking a package.
type CreateInput struct {
	UserID      uuid.UUID
	Description string
	Dimensions  *string
	WeightLbs   decimal.Decimal
	Cost        decimal.Decimal
	Branch      string
	Status      *enums.PackageStatus
}

// CreateFromPreAlertInput intakes a package against an existing pre-alert.
// Cost defaults to the pre-alert's declared value when nil.
type CreateFromPreAlertInput struct {
	PreAlertID uuid.UUID
	Dimensions *string
	WeightLbs  decimal.Decimal
	Cost       *decimal.Decimal
	Branch     string
	Note       *string
}

// TransitionInput drives a status change on a package.
type TransitionInput struct {
	NewStatus            enums.PackageStatus
	Note                 *string
	FinalCost            *decimal.Decimal
	AllowRegression      bool
	SuppressNotification bool
}

// UpdateInput is a partial patch; nil fields retain their prior value.
type UpdateInput struct {
	Description *string
	Dimensions  *string
	WeightLbs   *decimal.Decimal
	Cost        *decimal.Decimal
	Branch      *string
}

// ListFilters narrows package listings.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.PackageStatus
	Branch *string
}

// PackageList is one page of packages plus the cursor for the next page.
type PackageList struct {
	Items      []models.Package
	NextCursor string
}

// TrackingResult is the public tracking view: the package plus its
// newest-first event history.
type TrackingResult struct {
	Package *models.Package
	Events  []models.PackageTrackingEvent
}
