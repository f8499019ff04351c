package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// Transfer is a manifest moving a batch of packages to a destination branch.
type Transfer struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DestinationBranch string               `gorm:"column:destination_branch;not null;index"`
	Status            enums.TransferStatus `gorm:"column:status;type:transfer_status;not null;default:'created'"`
	Notes             *string              `gorm:"column:notes"`
	CreatedBy         uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	DispatchedBy      *uuid.UUID           `gorm:"column:dispatched_by;type:uuid"`
	DispatchedAt      *time.Time           `gorm:"column:dispatched_at"`
	ArrivedAt         *time.Time           `gorm:"column:arrived_at"`
	CancelledAt       *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
