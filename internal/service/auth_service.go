package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
	"github.com/saborytradicion/storefront/internal/security"
	"github.com/saborytradicion/storefront/internal/security/auth"
)

var (
	// ErrInvalidCredentials is returned for an unknown email, a wrong
	// password or an account outside the requested tenant
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidInput wraps validation failures
	ErrInvalidInput = errors.New("invalid input")
)

// AuthService handles authentication operations
type AuthService struct {
	users    domain.UserRepository
	tokens   *auth.TokenManager
	authz    *security.AuthorizationService
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	tokens *auth.TokenManager,
	authz *security.AuthorizationService,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}

	return &AuthService{
		users:    users,
		tokens:   tokens,
		authz:    authz,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Login authenticates a user for tenantDomain and returns a signed token.
// Superadmins may sign in under any tenant.
func (s *AuthService) Login(email, password, tenantDomain string) (*domain.LoginResult, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		s.logger.Info("login attempt with unknown email", slog.String("email", email))
		metrics.ObserveLogin("invalid")
		return nil, ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		metrics.ObserveLogin("invalid")
		return nil, ErrInvalidCredentials
	}

	if user.Role != domain.RoleSuperadmin && tenantDomain != "" && !strings.EqualFold(user.TenantDomain, tenantDomain) {
		s.logger.Info("login for foreign tenant",
			slog.String("email", email),
			slog.String("user_tenant", user.TenantDomain),
			slog.String("requested_tenant", tenantDomain),
		)
		metrics.ObserveLogin("wrong_tenant")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.User, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		metrics.ObserveLogin("error")
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.String("tenant", user.TenantDomain),
	)
	metrics.ObserveLogin("success")

	return &domain.LoginResult{Token: token, User: user.User}, nil
}

// Verify checks a token and returns the current profile of its user.
// Deactivated accounts fail even while their token is unexpired.
func (s *AuthService) Verify(token string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByID(claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	profile := user.User
	return &profile, nil
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(userID, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	if !auth.CheckPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	user.PasswordHash = hash
	if err := s.users.Update(user); err != nil {
		s.logger.Error("failed to update user password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}

// NewUser is the input of CreateUser
type NewUser struct {
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Password     string      `json:"password"`
	Role         domain.Role `json:"role"`
	TenantDomain string      `json:"tenantDomain"`
}

// CreateUser adds a staff account on behalf of actor
func (s *AuthService) CreateUser(actor domain.User, in NewUser) (*domain.User, error) {
	if in.Name == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}
	if _, known := security.RolePermissions[in.Role]; !known {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	if in.Role == domain.RoleSuperadmin {
		in.TenantDomain = ""
	}
	if err := s.authz.Authorize(actor, security.PermManageUsers, in.TenantDomain); err != nil {
		return nil, err
	}
	if !s.authz.CanAssignRole(actor, in.Role) {
		return nil, fmt.Errorf("%w: %s cannot assign %s", security.ErrForbidden, actor.Role, in.Role)
	}

	if existing, err := s.users.GetByEmail(in.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user := &domain.StoredUser{
		User: domain.User{
			Name:         in.Name,
			Email:        in.Email,
			Role:         in.Role,
			TenantDomain: strings.ToLower(in.TenantDomain),
		},
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to create user")
	}

	s.logger.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
		slog.String("created_by", actor.ID),
	)
	profile := user.User
	return &profile, nil
}

// ListUsers returns the active accounts of tenantDomain
func (s *AuthService) ListUsers(actor domain.User, tenantDomain string) ([]domain.User, error) {
	if err := s.authz.Authorize(actor, security.PermManageUsers, tenantDomain); err != nil {
		return nil, err
	}
	stored, err := s.users.ListByTenant(tenantDomain)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(stored))
	for _, u := range stored {
		out = append(out, u.User)
	}
	return out, nil
}
