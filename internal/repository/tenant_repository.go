package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/saborytradicion/storefront/internal/domain"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL.
// Settings are stored as JSONB.
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.TenantRepository = (*PostgresTenantRepository)(nil)

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

const tenantColumns = `id, domain, name, settings, is_active, created_at, updated_at`

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var settings []byte
	if err := row.Scan(&t.ID, &t.Domain, &t.Name, &settings, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode settings of %s: %w", t.Domain, err)
		}
	}
	return t, nil
}

// Create creates a new tenant
func (r *PostgresTenantRepository) Create(tenant *domain.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	tenant.Domain = strings.ToLower(tenant.Domain)
	settings, err := json.Marshal(tenant.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	query := `
		INSERT INTO tenants (id, domain, name, settings, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(query, tenant.ID, tenant.Domain, tenant.Name, settings, tenant.IsActive).Scan(
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByDomain retrieves a tenant by its domain
func (r *PostgresTenantRepository) GetByDomain(d string) (*domain.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(`SELECT `+tenantColumns+` FROM tenants WHERE domain = $1`, strings.ToLower(d)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %s: %w", d, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

// Update updates an existing tenant
func (r *PostgresTenantRepository) Update(tenant *domain.Tenant) error {
	settings, err := json.Marshal(tenant.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	query := `
		UPDATE tenants
		SET name = $1, settings = $2, is_active = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`
	err = r.db.QueryRow(query, tenant.Name, settings, tenant.IsActive, tenant.ID).Scan(&tenant.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("tenant %s: %w", tenant.Domain, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

// List returns all tenants
func (r *PostgresTenantRepository) List() ([]*domain.Tenant, error) {
	rows, err := r.db.Query(`SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
