package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// PackageTrackingEvent is an append-only audit row for each status change.
type PackageTrackingEvent struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageID  uuid.UUID            `gorm:"column:package_id;type:uuid;not null;index"`
	FromStatus *enums.PackageStatus `gorm:"column:from_status"`
	ToStatus   enums.PackageStatus  `gorm:"column:to_status;not null"`
	Regression bool                 `gorm:"column:regression;not null;default:false"`
	Note       *string              `gorm:"column:note"`
	ActorID    *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
