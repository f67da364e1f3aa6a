package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/internal/config"
	"github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg  config.Config
	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	tokens *tokenManager
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("identity.service"),
		repo:   p.Repo,
		tokens: newTokenManager(p.Cfg.AuthJWTSecret, p.Cfg.AuthTokenIssuer, time.Duration(p.Cfg.AuthTokenTTL)*time.Second),
	}
}

// Resolve verifies the bearer token and builds the request principal from the
// user's current row. Missing users and unverifiable tokens are both
// unauthenticated; only active accounts pass.
func (s *Service) Resolve(ctx context.Context, token string) (*principal.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	parsed, err := s.tokens.verify(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(parsed.UserID))
	if err != nil || userID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	if user.Status != domain.UserStatusActive {
		return nil, domain.ErrAccountInactive
	}

	p := &principal.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      principal.Role(user.Role),
		CompanyID: user.CompanyID,
		Status:    user.Status,
	}

	if user.CompanyID != 0 {
		company, err := s.repo.FindCompanyByID(ctx, s.db, user.CompanyID)
		if err != nil {
			return nil, err
		}
		if company != nil {
			p.CompanyType = principal.CompanyType(company.Type)
		}
	}

	return p, nil
}

func (s *Service) IssueToken(ctx context.Context, userID snowflake.ID) (string, error) {
	if userID == 0 {
		return "", domain.ErrUnauthenticated
	}
	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrUnauthenticated
	}
	return s.tokens.sign(user.ID.String())
}

func (s *Service) IssueTokenByEmail(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", domain.ErrUnauthenticated
	}
	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrUnauthenticated
	}
	return s.tokens.sign(user.ID.String())
}
