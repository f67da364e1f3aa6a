package domain

import (
	"context"
	"errors"

	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/pkg/db/pagination"
)

var (
	ErrUnauthenticated            = errors.New("unauthenticated")
	ErrNotFound                   = errors.New("not_found")
	ErrSelfModificationNotAllowed = errors.New("self_modification_not_allowed")
	ErrInsufficientPermission     = errors.New("insufficient_permission")
	ErrCompanySuspended           = errors.New("company_suspended")
	ErrCannotEscalate             = errors.New("cannot_escalate")
	ErrValidationFailed           = errors.New("validation_failed")
)

type UpdateUserRequest struct {
	Role   string
	Status string
	Reason string
}

type ListAuditLogsRequest struct {
	pagination.Pagination
	Action       string
	TargetUserID string
}

type ListAuditLogsResponse struct {
	pagination.PageInfo
	AuditLogs []UserAuditLog `json:"audit_logs"`
}

// Service applies role and status changes to users inside one company. The
// caller's company is the only scope it can see; the role hierarchy decides
// who may change whom. Mutations commit atomically with their audit row, and
// the status notification goes out only after the commit.
type Service interface {
	UpdateUserRoleAndStatus(ctx context.Context, targetUserID string, req UpdateUserRequest) (identitydomain.User, error)
	RemoveUser(ctx context.Context, targetUserID string, reason string) error
	ListAuditLogs(ctx context.Context, req ListAuditLogsRequest) (ListAuditLogsResponse, error)
}

// Notifier delivers best-effort status-change notices. Failures are logged
// by the caller and never surfaced: the mutation has already committed.
type Notifier interface {
	SendStatusChangeNotice(ctx context.Context, email, status, reason string) error
}
