package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StaffAction is an append-only audit row for staff activity.
type StaffAction struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StaffID   uuid.UUID       `gorm:"column:staff_id;type:uuid;not null;index"`
	Action    string          `gorm:"column:action;not null"`
	PackageID *uuid.UUID      `gorm:"column:package_id;type:uuid"`
	Details   json.RawMessage `gorm:"column:details;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
