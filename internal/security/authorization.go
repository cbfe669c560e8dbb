package security

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/saborytradicion/storefront/internal/domain"
)

// ErrForbidden is returned when a role or tenant check fails
var ErrForbidden = errors.New("forbidden")

// Permission represents an action permission
type Permission string

const (
	PermViewOrders           Permission = "view_orders"
	PermWatchOrders          Permission = "watch_orders"
	PermUpdateTenantSettings Permission = "update_tenant_settings"
	PermManageUsers          Permission = "manage_users"
	PermManageTenants        Permission = "manage_tenants"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleSuperadmin: {
		PermViewOrders,
		PermWatchOrders,
		PermUpdateTenantSettings,
		PermManageUsers,
		PermManageTenants,
	},
	domain.RoleAdmin: {
		PermViewOrders,
		PermWatchOrders,
		PermUpdateTenantSettings,
		PermManageUsers,
	},
	domain.RoleOrdersManager: {
		PermViewOrders,
		PermWatchOrders,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Authorize checks that user may perform permission on tenantDomain.
// Superadmins act on every tenant; everyone else only on their own.
func (as *AuthorizationService) Authorize(user domain.User, permission Permission, tenantDomain string) error {
	if !as.HasPermission(user.Role, permission) {
		as.logger.Warn("permission denied",
			slog.String("user_id", user.ID),
			slog.String("role", string(user.Role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("%w: %s cannot %s", ErrForbidden, user.Role, permission)
	}
	if user.Role == domain.RoleSuperadmin {
		return nil
	}
	if user.TenantDomain != tenantDomain {
		as.logger.Warn("tenant access denied",
			slog.String("user_id", user.ID),
			slog.String("user_tenant", user.TenantDomain),
			slog.String("requested_tenant", tenantDomain),
		)
		return fmt.Errorf("%w: access to tenant %s denied", ErrForbidden, tenantDomain)
	}
	return nil
}

// CanAssignRole reports whether actor may create a user with role. Admins
// add staff to their own tenant; only superadmins create superadmins.
func (as *AuthorizationService) CanAssignRole(actor domain.User, role domain.Role) bool {
	switch actor.Role {
	case domain.RoleSuperadmin:
		return true
	case domain.RoleAdmin:
		return role == domain.RoleAdmin || role == domain.RoleOrdersManager
	default:
		return false
	}
}
