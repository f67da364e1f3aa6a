package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/internal/principal"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrAccountInactive = errors.New("account_inactive")
)

// Service resolves bearer credentials into principals. Company and role are
// looked up fresh on every resolution, never trusted from the token, so a
// role or company change takes effect on the very next request.
type Service interface {
	Resolve(ctx context.Context, token string) (*principal.Principal, error)
	IssueToken(ctx context.Context, userID snowflake.ID) (string, error)
	IssueTokenByEmail(ctx context.Context, email string) (string, error)
}
