package repository

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/security/auth"
)

// DemoAccount is a seeded login
type DemoAccount struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// DemoAccounts returns the accounts seeded for tenantDomain
func DemoAccounts(tenantDomain string) []DemoAccount {
	return []DemoAccount{
		{Name: "Plataforma", Email: "root@saborytradicion.test", Password: "superadmin123", Role: domain.RoleSuperadmin},
		{Name: "Administración", Email: "admin@" + tenantDomain, Password: "admin12345", Role: domain.RoleAdmin},
		{Name: "Cocina", Email: "pedidos@" + tenantDomain, Password: "pedidos123", Role: domain.RoleOrdersManager},
	}
}

// SeedDemoData creates a demo tenant with staff accounts and a small menu.
// Existing records make it fail, so call it only on empty repositories.
func SeedDemoData(users domain.UserRepository, tenants domain.TenantRepository, menu *MemoryMenuRepository, tenantDomain string) error {
	if err := tenants.Create(&domain.Tenant{
		Domain:   tenantDomain,
		Name:     "Sabor y Tradición",
		IsActive: true,
		Settings: domain.TenantSettings{DisplayName: "Sabor y Tradición", PrimaryColor: "#b5651d"},
	}); err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}

	for _, acct := range DemoAccounts(tenantDomain) {
		hash, err := auth.HashPassword(acct.Password)
		if err != nil {
			return fmt.Errorf("hash %s: %w", acct.Email, err)
		}
		u := &domain.StoredUser{
			User:         domain.User{Name: acct.Name, Email: acct.Email, Role: acct.Role},
			PasswordHash: hash,
			IsActive:     true,
		}
		if acct.Role != domain.RoleSuperadmin {
			u.TenantDomain = tenantDomain
		}
		if err := users.Create(u); err != nil {
			return fmt.Errorf("seed user %s: %w", acct.Email, err)
		}
	}

	if menu != nil {
		SeedDemoMenu(menu, tenantDomain)
	}
	return nil
}

// SeedDemoMenu puts the demo dishes on tenantDomain's menu
func SeedDemoMenu(menu *MemoryMenuRepository, tenantDomain string) {
	for _, d := range []domain.Dish{
		{ID: "mole-poblano", Name: "Mole poblano", Price: decimal.RequireFromString("145.00"), CategoryID: "platos-fuertes", IsActive: true},
		{ID: "pozole-rojo", Name: "Pozole rojo", Price: decimal.RequireFromString("120.50"), CategoryID: "sopas", IsActive: true},
		{ID: "tamales-verdes", Name: "Tamales verdes", Price: decimal.RequireFromString("35.00"), CategoryID: "antojitos", IsActive: true},
		{ID: "chiles-en-nogada", Name: "Chiles en nogada", Price: decimal.RequireFromString("189.90"), CategoryID: "temporada", IsActive: false},
		{ID: "agua-jamaica", Name: "Agua de jamaica", Price: decimal.RequireFromString("28.00"), CategoryID: "bebidas", IsActive: true},
	} {
		menu.Put(tenantDomain, d)
	}
}
