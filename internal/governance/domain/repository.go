package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"gorm.io/gorm"
)

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListAuditFilter struct {
	CompanyID    snowflake.ID
	Action       string
	TargetUserID snowflake.ID
	Cursor       *AuditCursor
	Limit        int
}

type Repository interface {
	FindCompanyStatus(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (string, error)
	FindUserForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*identitydomain.User, error)
	SetUserRoleAndStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, role, status string) error
	InsertAuditLog(ctx context.Context, db *gorm.DB, entry *UserAuditLog) error
	ListAuditLogs(ctx context.Context, db *gorm.DB, filter ListAuditFilter) ([]*UserAuditLog, error)
}
