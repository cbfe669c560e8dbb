package domain

import "strings"

// AuthContext is one of the three independent login scopes
type AuthContext string

const (
	ContextAdmin      AuthContext = "admin"
	ContextSuperadmin AuthContext = "superadmin"
	ContextOrders     AuthContext = "orders"
)

// AuthContexts lists every context in a stable order
var AuthContexts = []AuthContext{ContextAdmin, ContextSuperadmin, ContextOrders}

// DomainScoped reports whether sessions of this context are keyed by tenant domain
func (c AuthContext) DomainScoped() bool {
	return c != ContextSuperadmin
}

// Valid reports whether c is a known context
func (c AuthContext) Valid() bool {
	switch c {
	case ContextAdmin, ContextSuperadmin, ContextOrders:
		return true
	}
	return false
}

// Scope identifies one session slot: a context plus, for domain-scoped
// contexts, the tenant domain it belongs to
type Scope struct {
	Context      AuthContext `json:"context"`
	TenantDomain string      `json:"tenantDomain,omitempty"`
}

// SessionKey is the storage-safe identifier of the slot
func (s Scope) SessionKey() string {
	if !s.Context.DomainScoped() {
		return string(s.Context)
	}
	return string(s.Context) + "_" + NormalizeDomain(s.TenantDomain)
}

// NormalizeDomain strips a port, lowercases and replaces every
// non-alphanumeric rune with an underscore
func NormalizeDomain(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	host = strings.ToLower(host)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, host)
}
