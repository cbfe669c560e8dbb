package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by repositories when a record does not exist
var ErrNotFound = errors.New("not found")

// Role is the platform role carried by a user profile
type Role string

const (
	RoleSuperadmin    Role = "SUPERADMIN"
	RoleAdmin         Role = "ADMIN"
	RoleOrdersManager Role = "ORDERS_MANAGER"
)

// User is the profile returned by the auth API and cached with a session
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	TenantDomain string `json:"tenantDomain,omitempty"`
}

// LoginResult is the body of a successful POST /auth/login
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// AuthenticationError reports credentials rejected by the auth API.
// Message is the server's text, unchanged.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}

// StoredUser is a user record as kept by the reference API
type StoredUser struct {
	User
	PasswordHash string // bcrypt, never serialized
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(user *StoredUser) error
	GetByID(id string) (*StoredUser, error)
	GetByEmail(email string) (*StoredUser, error)
	Update(user *StoredUser) error
	ListByTenant(tenantDomain string) ([]*StoredUser, error)
}
