package service

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/security"
)

// TenantService manages tenant branding
type TenantService struct {
	tenants domain.TenantRepository
	authz   *security.AuthorizationService
	logger  *slog.Logger
}

func NewTenantService(tenants domain.TenantRepository, authz *security.AuthorizationService, logger *slog.Logger) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{tenants: tenants, authz: authz, logger: logger}
}

// UpdateSettings merges the non-empty fields of settings into the branding
// of tenantDomain. Only an ADMIN of that tenant or a SUPERADMIN may do it.
func (s *TenantService) UpdateSettings(actor domain.User, tenantDomain string, settings domain.TenantSettings) (*domain.Tenant, error) {
	tenantDomain = strings.ToLower(tenantDomain)
	if err := s.authz.Authorize(actor, security.PermUpdateTenantSettings, tenantDomain); err != nil {
		return nil, err
	}
	if settings.PrimaryColor != "" && !validColor(settings.PrimaryColor) {
		return nil, fmt.Errorf("%w: primary color must look like #rrggbb", ErrInvalidInput)
	}

	tenant, err := s.tenants.GetByDomain(tenantDomain)
	if err != nil {
		return nil, err
	}
	tenant.Settings = mergeSettings(tenant.Settings, settings)
	if err := s.tenants.Update(tenant); err != nil {
		return nil, fmt.Errorf("update tenant %s: %w", tenantDomain, err)
	}

	s.logger.Info("tenant settings updated",
		slog.String("tenant", tenantDomain),
		slog.String("user_id", actor.ID),
	)
	return tenant, nil
}

// Get returns a tenant by domain
func (s *TenantService) Get(tenantDomain string) (*domain.Tenant, error) {
	return s.tenants.GetByDomain(tenantDomain)
}

// List returns every tenant; superadmin only
func (s *TenantService) List(actor domain.User) ([]*domain.Tenant, error) {
	if err := s.authz.Authorize(actor, security.PermManageTenants, ""); err != nil {
		return nil, err
	}
	return s.tenants.List()
}

func mergeSettings(cur, in domain.TenantSettings) domain.TenantSettings {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cur.DisplayName, in.DisplayName)
	set(&cur.PrimaryColor, in.PrimaryColor)
	set(&cur.LogoURL, in.LogoURL)
	set(&cur.Phone, in.Phone)
	set(&cur.Address, in.Address)
	return cur
}

func validColor(c string) bool {
	if len(c) != 7 && len(c) != 4 {
		return false
	}
	if c[0] != '#' {
		return false
	}
	for _, r := range strings.ToLower(c[1:]) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
