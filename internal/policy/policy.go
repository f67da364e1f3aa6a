// Package policy evaluates declarative access policies against a principal.
//
// Evaluation happens before any business logic runs, so a denial can never
// leave partial side effects behind.
package policy

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/internal/principal"
)

var (
	ErrUnauthenticated          = errors.New("unauthenticated")
	ErrInsufficientRole         = errors.New("insufficient_role")
	ErrCompanyTypeNotAuthorized = errors.New("company_type_not_authorized")
	ErrNoCompanyAssociation     = errors.New("no_company_association")
	ErrCrossTenantAccess        = errors.New("cross_tenant_access")
)

// Policy is a declarative set of conditions for one route or operation.
type Policy struct {
	// Roles, when non-empty, restricts access to the listed roles. Admins
	// pass this check regardless.
	Roles []principal.Role
	// CompanyTypes, when non-empty, restricts access by company type.
	// Admins pass this check regardless.
	CompanyTypes []principal.CompanyType
	// AllowSelf short-circuits to allow when the resource user is the
	// principal itself.
	AllowSelf bool
	// RequireCompanyMatch enforces the tenant boundary against the
	// resource's company. This check has no admin bypass.
	RequireCompanyMatch bool
}

// Request carries the path-resolved resource identifiers a policy may need.
type Request struct {
	ResourceCompanyID snowflake.ID
	ResourceUserID    snowflake.ID
}

// Evaluate checks the principal against the policy, in a fixed order:
// authentication, role, company type, self access, company match. The
// company-match rule is the load-bearing tenant boundary: it applies to
// admins too, so no authenticated user can reach another tenant's resources
// through a policy-guarded path.
func Evaluate(p *principal.Principal, pol Policy, req Request) error {
	if p == nil {
		return ErrUnauthenticated
	}

	isAdmin := p.IsAdmin()

	if len(pol.Roles) > 0 && !isAdmin && !containsRole(pol.Roles, p.Role) {
		return ErrInsufficientRole
	}

	if len(pol.CompanyTypes) > 0 && !isAdmin && !containsCompanyType(pol.CompanyTypes, p.CompanyType) {
		return ErrCompanyTypeNotAuthorized
	}

	if pol.AllowSelf && req.ResourceUserID != 0 && req.ResourceUserID == p.UserID {
		return nil
	}

	if pol.RequireCompanyMatch && req.ResourceCompanyID != 0 {
		if p.CompanyID == 0 {
			return ErrNoCompanyAssociation
		}
		if p.CompanyID != req.ResourceCompanyID {
			return ErrCrossTenantAccess
		}
	}

	return nil
}

func containsRole(roles []principal.Role, r principal.Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

func containsCompanyType(types []principal.CompanyType, t principal.CompanyType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
