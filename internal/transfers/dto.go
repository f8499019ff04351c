package transfers

import (
	"github.com/google/uuid"

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

// CreateInput opens a new manifest with its initial package set.
type CreateInput struct {
	DestinationBranch string
	PackageIDs        []uuid.UUID
	Notes             *string
}

// UpdateDetailsInput is a partial patch; at least one field must be set.
type UpdateDetailsInput struct {
	DestinationBranch *string
	Notes             *string
}

// ListFilters narrows transfer listings.
type ListFilters struct {
	Status            *enums.TransferStatus
	DestinationBranch *string
}

// TransferSummary pairs a manifest with its package counts.
type TransferSummary struct {
	Transfer   models.Transfer
	Packages   int
	CheckedOff int
}

// TransferList is one page of summaries plus the cursor for the next page.
type TransferList struct {
	Items      []TransferSummary
	NextCursor string
}

// ManifestEntry is one package on a manifest with its customer details.
type ManifestEntry struct {
	Membership    models.TransferPackage
	Package       models.Package
	CustomerName  string
	CustomerEmail string
}

// TransferDetail is the full manifest view.
type TransferDetail struct {
	Transfer models.Transfer
	Entries  []ManifestEntry
}
