package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
)

// ErrNoSession is returned when no usable session exists
var ErrNoSession = errors.New("no active session")

// AuthAPI is the part of the remote API the session store needs
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
	Verify(ctx context.Context, token string) (*domain.User, error)
}

// ActiveSession is one populated slot found by ActiveSessions
type ActiveSession struct {
	Scope      domain.Scope
	SessionKey string
	User       domain.User
}

type session struct {
	token string
	user  domain.User
}

// SessionStore keeps one login per session key. The active scope decides
// which slot Login, Logout and the accessors work on; background
// verification only ever writes the slot it was started for.
type SessionStore struct {
	kv            domain.KeyValueStore
	api           AuthAPI
	notices       *Notices
	logger        *slog.Logger
	verifyTimeout time.Duration

	mu     sync.RWMutex
	scope  domain.Scope
	slots  map[string]*session
	verify sync.WaitGroup
}

// NewSessionStore migrates legacy sessions and returns a store whose active
// scope is the admin context of defaultDomain
func NewSessionStore(ctx context.Context, kv domain.KeyValueStore, api AuthAPI, notices *Notices, defaultDomain string, logger *slog.Logger) (*SessionStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := MigrateLegacySessions(ctx, kv, defaultDomain, logger); err != nil {
		return nil, fmt.Errorf("migrate legacy sessions: %w", err)
	}
	return &SessionStore{
		kv:            kv,
		api:           api,
		notices:       notices,
		logger:        logger,
		verifyTimeout: 10 * time.Second,
		scope:         domain.Scope{Context: domain.ContextAdmin, TenantDomain: defaultDomain},
		slots:         make(map[string]*session),
	}, nil
}

// CheckAuth switches to scope and returns its cached user, or nil when the
// scope has no stored session. A cached session is re-verified in the
// background; if that fails the cached user stands.
func (s *SessionStore) CheckAuth(ctx context.Context, scope domain.Scope) *domain.User {
	key := scope.SessionKey()

	s.mu.Lock()
	s.scope = scope
	s.mu.Unlock()

	cached, err := s.load(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read cached session",
			slog.String("session_key", key),
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	if cached == nil {
		delete(s.slots, key)
		s.mu.Unlock()
		metrics.ObserveSessionOperation("check", "anonymous")
		return nil
	}
	s.slots[key] = cached
	user, token := cached.user, cached.token
	s.mu.Unlock()
	metrics.ObserveSessionOperation("check", "cached")

	s.verify.Add(1)
	go s.reverify(context.WithoutCancel(ctx), key, token)

	return &user
}

func (s *SessionStore) reverify(ctx context.Context, key, token string) {
	defer s.verify.Done()

	ctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	user, err := s.api.Verify(ctx, token)
	if err != nil {
		s.logger.Debug("session verification failed, keeping cached user",
			slog.String("session_key", key),
			slog.String("error", err.Error()),
		)
		metrics.ObserveSessionOperation("verify", "failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[key]; ok && slot.token == token {
		slot.user = *user
	}
	metrics.ObserveSessionOperation("verify", "ok")
}

// Wait blocks until background verifications have finished
func (s *SessionStore) Wait() {
	s.verify.Wait()
}

// Login authenticates against the API and stores the session under the
// active scope. Rejected credentials come back as *domain.AuthenticationError
// with the server's message unchanged.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*domain.User, error) {
	scope := s.Scope()
	key := scope.SessionKey()

	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		metrics.ObserveSessionOperation("login", "rejected")
		var authErr *domain.AuthenticationError
		if errors.As(err, &authErr) {
			s.notices.Push(domain.NoticeDestructive, "Sign-in failed", authErr.Error())
		}
		return nil, err
	}

	rawUser, err := json.Marshal(result.User)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	if err := s.kv.Set(ctx, tokenKey(key), result.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := s.kv.Set(ctx, userKey(key), string(rawUser)); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}
	if scope.Context.DomainScoped() {
		if err := s.kv.Set(ctx, domainKey(key), scope.TenantDomain); err != nil {
			return nil, fmt.Errorf("store domain marker: %w", err)
		}
	}

	s.mu.Lock()
	s.slots[key] = &session{token: result.Token, user: result.User}
	s.mu.Unlock()

	metrics.ObserveSessionOperation("login", "ok")
	s.logger.Info("signed in",
		slog.String("session_key", key),
		slog.String("user_id", result.User.ID),
		slog.String("role", string(result.User.Role)),
	)

	user := result.User
	return &user, nil
}

// Logout removes the active scope's session only and returns the login
// route for its context
func (s *SessionStore) Logout(ctx context.Context) (string, error) {
	scope := s.Scope()
	key := scope.SessionKey()

	for _, k := range []string{tokenKey(key), userKey(key), domainKey(key)} {
		if err := s.kv.Remove(ctx, k); err != nil {
			return "", fmt.Errorf("remove %s: %w", k, err)
		}
	}

	s.mu.Lock()
	delete(s.slots, key)
	s.mu.Unlock()

	metrics.ObserveSessionOperation("logout", "ok")
	s.notices.Push(domain.NoticeSuccess, "Signed out", "You have been signed out.")
	return LoginRoute(scope.Context), nil
}

// ActiveSessions lists the populated slots of every context under the
// active tenant domain. Diagnostic only.
func (s *SessionStore) ActiveSessions(ctx context.Context) ([]ActiveSession, error) {
	tenant := s.Scope().TenantDomain

	var out []ActiveSession
	for _, c := range domain.AuthContexts {
		scope := domain.Scope{Context: c}
		if c.DomainScoped() {
			scope.TenantDomain = tenant
		}
		key := scope.SessionKey()
		sess, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			out = append(out, ActiveSession{Scope: scope, SessionKey: key, User: sess.user})
		}
	}
	return out, nil
}

// ClearAll removes every stored session of every context and tenant.
// The migration flag survives so legacy migration never runs again.
func (s *SessionStore) ClearAll(ctx context.Context) (int, error) {
	keys, err := s.kv.Keys(ctx, authKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("list session keys: %w", err)
	}

	removed := 0
	for _, k := range keys {
		if k == MigratedFlagKey {
			continue
		}
		if err := s.kv.Remove(ctx, k); err != nil {
			return removed, fmt.Errorf("remove %s: %w", k, err)
		}
		removed++
	}

	s.mu.Lock()
	s.slots = make(map[string]*session)
	s.mu.Unlock()

	metrics.ObserveSessionOperation("clear_all", "ok")
	s.logger.Info("cleared all sessions", slog.Int("keys_removed", removed))
	return removed, nil
}

// TenantToken is the token to present for tenant-level changes on
// tenantDomain: that tenant's admin token, else the superadmin token.
// Orders manager tokens are never offered; the API authorizes the call.
func (s *SessionStore) TenantToken(ctx context.Context, tenantDomain string) (string, error) {
	candidates := []domain.Scope{
		{Context: domain.ContextAdmin, TenantDomain: tenantDomain},
		{Context: domain.ContextSuperadmin},
	}
	for _, scope := range candidates {
		token, ok, err := s.kv.Get(ctx, tokenKey(scope.SessionKey()))
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		if ok && token != "" {
			return token, nil
		}
	}
	return "", ErrNoSession
}

// Scope is the active scope
func (s *SessionStore) Scope() domain.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// User is the active scope's user, nil when signed out
func (s *SessionStore) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[s.scope.SessionKey()]
	if !ok {
		return nil
	}
	user := slot.user
	return &user
}

// Token is the active scope's bearer token
func (s *SessionStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[s.scope.SessionKey()]
	if !ok {
		return "", false
	}
	return slot.token, true
}

// load reads a stored session; a missing half or unparseable user is absence
func (s *SessionStore) load(ctx context.Context, key string) (*session, error) {
	token, ok, err := s.kv.Get(ctx, tokenKey(key))
	if err != nil || !ok {
		return nil, err
	}
	raw, ok, err := s.kv.Get(ctx, userKey(key))
	if err != nil || !ok {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("ignoring corrupt stored user",
			slog.String("session_key", key),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return &session{token: token, user: user}, nil
}
