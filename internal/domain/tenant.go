package domain

import "time"

// Tenant is a restaurant served under its own domain
type Tenant struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	Name      string         `json:"name"`
	Settings  TenantSettings `json:"settings"`
	IsActive  bool           `json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// TenantSettings holds the branding a tenant admin can edit
type TenantSettings struct {
	DisplayName  string `json:"displayName,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
}

// TenantRepository defines data access for tenants
type TenantRepository interface {
	Create(tenant *Tenant) error
	GetByDomain(domain string) (*Tenant, error)
	Update(tenant *Tenant) error
	List() ([]*Tenant, error)
}
