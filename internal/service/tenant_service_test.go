package service

import (
	"errors"
	"testing"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/security"
)

func TestUpdateSettingsAuthorization(t *testing.T) {
	f := newFixture(t)
	s := NewTenantService(f.tenants, f.authz, nil)
	settings := domain.TenantSettings{DisplayName: "Sabor", PrimaryColor: "#a0522d"}

	if _, err := s.UpdateSettings(f.user(t, "pedidos@demo.test"), "demo.test", settings); !errors.Is(err, security.ErrForbidden) {
		t.Fatalf("orders manager must be denied, got %v", err)
	}

	tenant, err := s.UpdateSettings(f.user(t, "admin@demo.test"), "DEMO.test", settings)
	if err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if tenant.Settings.PrimaryColor != "#a0522d" {
		t.Fatalf("settings not applied: %+v", tenant.Settings)
	}

	root := f.user(t, "root@saborytradicion.test")
	if _, err := s.UpdateSettings(root, "demo.test", domain.TenantSettings{PrimaryColor: "red"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected bad color rejected, got %v", err)
	}
	if _, err := s.UpdateSettings(root, "missing.test", settings); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateSettingsKeepsUnsetFields(t *testing.T) {
	f := newFixture(t)
	s := NewTenantService(f.tenants, f.authz, nil)
	admin := f.user(t, "admin@demo.test")

	if _, err := s.UpdateSettings(admin, "demo.test", domain.TenantSettings{DisplayName: "Sabor", Phone: "555-0100"}); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	tenant, err := s.UpdateSettings(admin, "demo.test", domain.TenantSettings{PrimaryColor: "#fff"})
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	want := domain.TenantSettings{DisplayName: "Sabor", Phone: "555-0100", PrimaryColor: "#fff"}
	if tenant.Settings != want {
		t.Fatalf("expected %+v, got %+v", want, tenant.Settings)
	}
}

func TestListTenantsSuperadminOnly(t *testing.T) {
	f := newFixture(t)
	s := NewTenantService(f.tenants, f.authz, nil)

	if _, err := s.List(f.user(t, "admin@demo.test")); !errors.Is(err, security.ErrForbidden) {
		t.Fatalf("expected admin denied, got %v", err)
	}
	list, err := s.List(f.user(t, "root@saborytradicion.test"))
	if err != nil || len(list) != 1 || list[0].Domain != "demo.test" {
		t.Fatalf("unexpected tenants %v (%v)", list, err)
	}
}
