package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/internal/governance/domain"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/internal/observability/metrics"
	"github.com/dealerdesk/platform/internal/policy"
	"github.com/dealerdesk/platform/internal/principal"
	"github.com/dealerdesk/platform/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Notifier domain.Notifier   `optional:"true"`
	Metrics  *metrics.Recorder `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	notifier domain.Notifier
	metrics  *metrics.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("governance.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		notifier: p.Notifier,
		metrics:  p.Metrics,
	}
}

// UpdateUserRoleAndStatus changes a user's role and status inside the
// caller's company. The audit row and the user update commit together; the
// notification goes out afterwards and its failure never unwinds the commit.
func (s *Service) UpdateUserRoleAndStatus(ctx context.Context, targetUserID string, req domain.UpdateUserRequest) (identitydomain.User, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return identitydomain.User{}, domain.ErrUnauthenticated
	}

	targetID, err := parseID(targetUserID)
	if err != nil {
		return identitydomain.User{}, domain.ErrNotFound
	}

	newRole := principal.Role(strings.TrimSpace(req.Role))
	if !newRole.Valid() {
		return identitydomain.User{}, domain.ErrValidationFailed
	}
	newStatus := strings.TrimSpace(req.Status)
	if newStatus != identitydomain.UserStatusActive && newStatus != identitydomain.UserStatusInactive {
		return identitydomain.User{}, domain.ErrValidationFailed
	}

	var updated identitydomain.User
	var statusChanged bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.authorizeMutation(ctx, tx, p, targetID)
		if err != nil {
			return err
		}
		if !policy.CanAssignRole(p.Role, newRole) {
			return domain.ErrCannotEscalate
		}

		action := domain.AuditActionStatusUpdate
		if string(newRole) != target.Role {
			action = domain.AuditActionRoleUpdate
		}
		statusChanged = newStatus != target.Status

		if err := s.writeAudit(ctx, tx, p, target, action, string(newRole), newStatus, req.Reason); err != nil {
			return err
		}
		if err := s.repo.SetUserRoleAndStatus(ctx, tx, target.ID, string(newRole), newStatus); err != nil {
			return err
		}

		updated = *target
		updated.Role = string(newRole)
		updated.Status = newStatus
		return nil
	})
	if err != nil {
		s.observe("update", err)
		return identitydomain.User{}, err
	}

	s.observe("update", nil)
	if statusChanged {
		s.notifyAfterCommit(ctx, updated.Email, updated.Status, req.Reason)
	}
	return updated, nil
}

// RemoveUser soft-deletes a user: the row and its audit history survive with
// status removed.
func (s *Service) RemoveUser(ctx context.Context, targetUserID string, reason string) error {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.ErrUnauthenticated
	}

	targetID, err := parseID(targetUserID)
	if err != nil {
		return domain.ErrNotFound
	}

	var removed identitydomain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.authorizeMutation(ctx, tx, p, targetID)
		if err != nil {
			return err
		}

		if err := s.writeAudit(ctx, tx, p, target, domain.AuditActionRemoval, target.Role, identitydomain.UserStatusRemoved, reason); err != nil {
			return err
		}
		if err := s.repo.SetUserRoleAndStatus(ctx, tx, target.ID, target.Role, identitydomain.UserStatusRemoved); err != nil {
			return err
		}

		removed = *target
		return nil
	})
	if err != nil {
		s.observe("remove", err)
		return err
	}

	s.observe("remove", nil)
	s.notifyAfterCommit(ctx, removed.Email, identitydomain.UserStatusRemoved, reason)
	return nil
}

func (s *Service) ListAuditLogs(ctx context.Context, req domain.ListAuditLogsRequest) (domain.ListAuditLogsResponse, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.ListAuditLogsResponse{}, domain.ErrUnauthenticated
	}

	filter := domain.ListAuditFilter{
		CompanyID: p.CompanyID,
		Action:    req.Action,
	}
	if id, err := parseID(req.TargetUserID); err == nil {
		filter.TargetUserID = id
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListAuditLogsResponse{}, domain.ErrValidationFailed
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListAuditLogsResponse{}, domain.ErrValidationFailed
		}
		id, err := parseID(decoded.ID)
		if err != nil {
			return domain.ListAuditLogsResponse{}, domain.ErrValidationFailed
		}
		filter.Cursor = &domain.AuditCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}
	filter.Limit = pageSize

	items, err := s.repo.ListAuditLogs(ctx, s.db, filter)
	if err != nil {
		return domain.ListAuditLogsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.UserAuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	logs := make([]domain.UserAuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := domain.ListAuditLogsResponse{AuditLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// authorizeMutation runs the checks shared by every governance mutation: the
// company must be active, the target must live in the caller's company, and
// the self and hierarchy rules must hold.
func (s *Service) authorizeMutation(ctx context.Context, tx *gorm.DB, p *principal.Principal, targetID snowflake.ID) (*identitydomain.User, error) {
	companyStatus, err := s.repo.FindCompanyStatus(ctx, tx, p.CompanyID)
	if err != nil {
		return nil, err
	}
	if companyStatus != identitydomain.CompanyStatusActive {
		return nil, domain.ErrCompanySuspended
	}

	target, err := s.repo.FindUserForUpdate(ctx, tx, p.CompanyID, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrNotFound
	}
	if target.ID == p.UserID {
		return nil, domain.ErrSelfModificationNotAllowed
	}
	if !policy.CanManage(p.Role, principal.Role(target.Role)) {
		return nil, domain.ErrInsufficientPermission
	}
	return target, nil
}

func (s *Service) writeAudit(ctx context.Context, tx *gorm.DB, p *principal.Principal, target *identitydomain.User, action, newRole, newStatus, reason string) error {
	return s.repo.InsertAuditLog(ctx, tx, &domain.UserAuditLog{
		ID:            s.genID.Generate(),
		TargetUserID:  target.ID,
		PerformedByID: p.UserID,
		Action:        action,
		Changes: datatypes.JSONMap{
			"previous": map[string]any{"role": target.Role, "status": target.Status},
			"new":      map[string]any{"role": newRole, "status": newStatus},
		},
		Reason:    strings.TrimSpace(reason),
		CreatedAt: time.Now().UTC(),
	})
}

// notifyAfterCommit is the second phase of every governance mutation: the
// transaction has committed, so a delivery failure is logged and swallowed.
func (s *Service) notifyAfterCommit(ctx context.Context, email, status, reason string) {
	if s.notifier == nil || email == "" {
		return
	}
	if err := s.notifier.SendStatusChangeNotice(ctx, email, status, reason); err != nil {
		s.log.Warn("status notification failed",
			zap.String("email", email),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

func (s *Service) observe(action string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientPermission),
		errors.Is(err, domain.ErrCannotEscalate),
		errors.Is(err, domain.ErrCompanySuspended),
		errors.Is(err, domain.ErrSelfModificationNotAllowed):
		outcome = metrics.OutcomeDenied
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveGovernanceOp(action, outcome)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}
