package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/internal/governance/domain"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repo) FindCompanyStatus(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (string, error) {
	var status string
	err := db.WithContext(ctx).Raw(
		`SELECT status FROM companies WHERE id = ?`,
		companyID,
	).Scan(&status).Error
	return status, err
}

func (r *repo) FindUserForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*identitydomain.User, error) {
	var user identitydomain.User
	err := lockForUpdate(db.WithContext(ctx)).
		Where("company_id = ? AND id = ?", companyID, id).
		Take(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) SetUserRoleAndStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, role, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET role = ?, status = ?, updated_at = ? WHERE id = ?`,
		role,
		status,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) InsertAuditLog(ctx context.Context, db *gorm.DB, entry *domain.UserAuditLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO user_audit_logs (id, target_user_id, performed_by_id, action, changes, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TargetUserID,
		entry.PerformedByID,
		entry.Action,
		entry.Changes,
		entry.Reason,
		entry.CreatedAt,
	).Error
}

// ListAuditLogs returns rows whose target user currently belongs to the
// given company. Scoping through the users table keeps history visible even
// for soft-removed users, who keep their company.
func (r *repo) ListAuditLogs(ctx context.Context, db *gorm.DB, filter domain.ListAuditFilter) ([]*domain.UserAuditLog, error) {
	var logs []*domain.UserAuditLog
	stmt := db.WithContext(ctx).Model(&domain.UserAuditLog{}).
		Where("target_user_id IN (SELECT id FROM users WHERE company_id = ?)", filter.CompanyID)

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if filter.TargetUserID != 0 {
		stmt = stmt.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
