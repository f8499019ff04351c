package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// PackageNotice records operational notices attached to a package, such as a
// missing pre-alert flag raised at intake.
type PackageNotice struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageID uuid.UUID              `gorm:"column:package_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Message   string                 `gorm:"column:message;not null"`
	CreatedBy uuid.UUID              `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
