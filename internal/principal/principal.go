// Package principal carries the authenticated identity for one request.
package principal

import "github.com/bwmarrin/snowflake"

// Role is the three-level company role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// Valid reports whether the role is one of the three known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// CompanyType distinguishes the two sides of the marketplace.
type CompanyType string

const (
	CompanyTypeDealer   CompanyType = "dealer"
	CompanyTypeSupplier CompanyType = "supplier"
)

// Principal is derived per request from a bearer credential. It is never
// persisted; company and role are looked up fresh on every resolution so a
// role or company change takes effect on the next request.
type Principal struct {
	UserID      snowflake.ID
	Email       string
	Role        Role
	CompanyID   snowflake.ID
	CompanyType CompanyType
	Status      string
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
