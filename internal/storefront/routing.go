package storefront

import (
	"errors"

	"github.com/saborytradicion/storefront/internal/domain"
)

// ErrRoleDenied means the credentials were valid but the role may not use
// this login surface. It is not a credentials failure and clears nothing.
var ErrRoleDenied = errors.New("role not allowed on this login page")

// RouteAfterLogin picks the landing page for a user who signed in on surface.
// Superadmins may only use the superadmin surface, and the general login page
// serves admins and orders managers.
func RouteAfterLogin(surface domain.AuthContext, role domain.Role) (string, error) {
	if surface == domain.ContextSuperadmin {
		if role == domain.RoleSuperadmin {
			return "/superadmin", nil
		}
		return "", ErrRoleDenied
	}

	switch role {
	case domain.RoleAdmin:
		return "/admin", nil
	case domain.RoleOrdersManager:
		return "/orders", nil
	default:
		return "", ErrRoleDenied
	}
}
