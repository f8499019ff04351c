package models

import (
	"time"

	"github.com/google/uuid"
)

// TransferPackage joins a package onto a transfer manifest. CheckedOff marks
// the package as verified loaded before dispatch.
type TransferPackage struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransferID   uuid.UUID  `gorm:"column:transfer_id;type:uuid;not null;uniqueIndex:uidx_transfer_packages_membership"`
	PackageID    uuid.UUID  `gorm:"column:package_id;type:uuid;not null;uniqueIndex:uidx_transfer_packages_membership;index"`
	CheckedOff   bool       `gorm:"column:checked_off;not null;default:false"`
	CheckedOffBy *uuid.UUID `gorm:"column:checked_off_by;type:uuid"`
	CheckedOffAt *time.Time `gorm:"column:checked_off_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
