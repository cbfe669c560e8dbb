// Package storefront holds the client-side state of the storefront: the
// scoped login sessions, the cart and the notices they produce. Both
// stores persist through a domain.KeyValueStore.
package storefront

import (
	"strings"

	"github.com/saborytradicion/storefront/internal/domain"
)

// Storage keys shared with the web storefront
const (
	authKeyPrefix   = "auth_"
	tokenKeyPrefix  = "auth_token_"
	userKeyPrefix   = "auth_user_"
	MigratedFlagKey = "auth_migrated_v2"
	CartStorageKey  = "sabor_y_tradicion_cart"
)

func tokenKey(sessionKey string) string  { return tokenKeyPrefix + sessionKey }
func userKey(sessionKey string) string   { return userKeyPrefix + sessionKey }
func domainKey(sessionKey string) string { return userKeyPrefix + sessionKey + "_domain" }

// Legacy keys predate domain scoping and are named after the context alone
func legacyTokenKey(c domain.AuthContext) string { return tokenKeyPrefix + string(c) }
func legacyUserKey(c domain.AuthContext) string  { return userKeyPrefix + string(c) }

// ResolveContext maps a route to the auth context that owns it
func ResolveContext(path string) domain.AuthContext {
	switch {
	case strings.HasPrefix(path, "/superadmin"):
		return domain.ContextSuperadmin
	case strings.HasPrefix(path, "/orders"):
		return domain.ContextOrders
	default:
		return domain.ContextAdmin
	}
}

// ScopeFor resolves the session slot for a route on a given host
func ScopeFor(path, host string) domain.Scope {
	c := ResolveContext(path)
	if !c.DomainScoped() {
		return domain.Scope{Context: c}
	}
	return domain.Scope{Context: c, TenantDomain: host}
}

// LoginRoute is where a signed-out user of context c is sent
func LoginRoute(c domain.AuthContext) string {
	if c == domain.ContextSuperadmin {
		return "/superadmin/login"
	}
	return "/login"
}
