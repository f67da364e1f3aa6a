package policy

import "github.com/dealerdesk/platform/internal/principal"

// Level ranks a role: admin 3, manager 2, staff 1. Unknown roles rank 0.
func Level(r principal.Role) int {
	switch r {
	case principal.RoleAdmin:
		return 3
	case principal.RoleManager:
		return 2
	case principal.RoleStaff:
		return 1
	}
	return 0
}

// CanManage reports whether an actor may act on a target user. The comparison
// is strict: nobody manages a peer or a superior, including same-role peers.
func CanManage(actor, target principal.Role) bool {
	return Level(actor) > Level(target)
}

// CanAssignRole reports whether an actor may hand out a role. An actor may
// assign its own level or lower, never higher.
func CanAssignRole(actor, newRole principal.Role) bool {
	return Level(actor) >= Level(newRole)
}
