package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

// Notification is a user-facing message produced by the notifier worker.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	PackageID *uuid.UUID             `gorm:"column:package_id;type:uuid"`
	Read      bool                   `gorm:"column:read;not null;default:false"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	EmailSent bool                   `gorm:"column:email_sent;not null;default:false"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
