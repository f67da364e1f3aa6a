// Package domain contains core types for the governance service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Audit actions. One row is written per governance mutation, in the same
// transaction as the user update.
const (
	AuditActionRoleUpdate   = "role_update"
	AuditActionStatusUpdate = "status_update"
	AuditActionRemoval      = "removal"
)

// UserAuditLog is append-only; rows are never updated or deleted.
type UserAuditLog struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	TargetUserID  snowflake.ID      `gorm:"column:target_user_id;not null;index" json:"target_user_id"`
	PerformedByID snowflake.ID      `gorm:"column:performed_by_id;not null" json:"performed_by_id"`
	Action        string            `gorm:"column:action;not null" json:"action"`
	Changes       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"changes"`
	Reason        string            `gorm:"column:reason" json:"reason"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (UserAuditLog) TableName() string { return "user_audit_logs" }
