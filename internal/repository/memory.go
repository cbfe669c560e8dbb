package repository

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saborytradicion/storefront/internal/domain"
)

// In-memory repositories back the reference API in development and tests.
// Records are copied on the way in and out so callers never share state.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.StoredUser // by id
}

var _ domain.UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.StoredUser)}
}

func (r *MemoryUserRepository) Create(user *domain.StoredUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("email %s already registered", user.Email)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(id string) (*domain.StoredUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByEmail(email string) (*domain.StoredUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.Email == email && u.IsActive {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (r *MemoryUserRepository) Update(user *domain.StoredUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) ListByTenant(tenantDomain string) ([]*domain.StoredUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.StoredUser
	for _, u := range r.users {
		if u.TenantDomain == tenantDomain && u.IsActive {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MemoryTenantRepository struct {
	mu      sync.RWMutex
	tenants map[string]domain.Tenant // by domain
}

var _ domain.TenantRepository = (*MemoryTenantRepository)(nil)

func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{tenants: make(map[string]domain.Tenant)}
}

func (r *MemoryTenantRepository) Create(tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant.Domain = strings.ToLower(tenant.Domain)
	if _, ok := r.tenants[tenant.Domain]; ok {
		return fmt.Errorf("tenant %s already exists", tenant.Domain)
	}
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	r.tenants[tenant.Domain] = *tenant
	return nil
}

func (r *MemoryTenantRepository) GetByDomain(d string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[strings.ToLower(d)]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", d, domain.ErrNotFound)
	}
	return &t, nil
}

func (r *MemoryTenantRepository) Update(tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.Domain]; !ok {
		return fmt.Errorf("tenant %s: %w", tenant.Domain, domain.ErrNotFound)
	}
	tenant.UpdatedAt = time.Now().UTC()
	r.tenants[tenant.Domain] = *tenant
	return nil
}

func (r *MemoryTenantRepository) List() ([]*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

type MemoryMenuRepository struct {
	mu     sync.RWMutex
	dishes map[string][]domain.Dish // by tenant domain, menu order
}

var _ domain.MenuRepository = (*MemoryMenuRepository)(nil)

func NewMemoryMenuRepository() *MemoryMenuRepository {
	return &MemoryMenuRepository{dishes: make(map[string][]domain.Dish)}
}

// Put adds or replaces a dish on a tenant's menu
func (r *MemoryMenuRepository) Put(tenantDomain string, dish domain.Dish) {
	r.mu.Lock()
	defer r.mu.Unlock()
	menu := r.dishes[tenantDomain]
	for i := range menu {
		if menu[i].ID == dish.ID {
			menu[i] = dish
			return
		}
	}
	r.dishes[tenantDomain] = append(menu, dish)
}

func (r *MemoryMenuRepository) ListDishes(tenantDomain string) ([]domain.Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Dish, len(r.dishes[tenantDomain]))
	copy(out, r.dishes[tenantDomain])
	return out, nil
}

func (r *MemoryMenuRepository) GetDish(tenantDomain, dishID string) (*domain.Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.dishes[tenantDomain] {
		if d.ID == dishID {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("dish %s: %w", dishID, domain.ErrNotFound)
}

type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string][]domain.Order // by tenant domain, oldest first
}

var _ domain.OrderRepository = (*MemoryOrderRepository)(nil)

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string][]domain.Order)}
}

func (r *MemoryOrderRepository) Create(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	r.orders[order.TenantDomain] = append(r.orders[order.TenantDomain], *order)
	return nil
}

func (r *MemoryOrderRepository) GetByID(tenantDomain, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders[tenantDomain] {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
}

// ListByTenant returns the tenant's orders, newest first
func (r *MemoryOrderRepository) ListByTenant(tenantDomain string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.orders[tenantDomain]
	out := make([]*domain.Order, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		o := list[i]
		out = append(out, &o)
	}
	return out, nil
}
