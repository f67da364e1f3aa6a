// Package domain contains core types for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Company statuses.
const (
	CompanyStatusActive    = "active"
	CompanyStatusSuspended = "suspended"
)

// User statuses. Users are never hard-deleted; removal is a status change.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusRemoved  = "removed"
)

// Company is the tenant boundary. Every user, order, invoice and payment is
// owned by exactly one company.
type Company struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Type      string       `gorm:"column:type;not null;index" json:"type"`
	Status    string       `gorm:"not null;default:'active'" json:"status"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// User belongs to exactly one company. Role and status are mutated only by
// the governance service.
type User struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID      `gorm:"column:company_id;not null;index" json:"company_id"`
	Email     string            `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name      string            `gorm:"column:name" json:"name"`
	Role      string            `gorm:"column:role;not null;default:'staff'" json:"role"`
	Status    string            `gorm:"column:status;not null;default:'active';index" json:"status"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
