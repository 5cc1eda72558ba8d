package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of identity roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamMember Role = "user"
	RoleClient     Role = "client"
	RoleGuest      Role = "guest"
)

// ParseRole rejects anything outside the known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleTeamMember, RoleClient, RoleGuest:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// CanSendInvites reports whether the role may create breakout invitations.
func (r Role) CanSendInvites() bool {
	return r == RoleAdmin || r == RoleTeamMember
}

// CanPublishInArena reports whether the role gets a publishing arena grant.
func (r Role) CanPublishInArena() bool {
	return r == RoleAdmin || r == RoleTeamMember || r == RoleClient
}

// IsAdmin 是否为管理员
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User represents a user in the system
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name,omitempty" db:"name"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Summary returns the public subset embedded in invitation listings.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// UserSummary is the public view of another user.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

// CreateUserRequest represents the request payload for adding a user to the directory
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// UpdateRoleRequest represents the request payload for changing a user's role
type UpdateRoleRequest struct {
	Role Role `json:"role"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Token types carried in TokenClaims.Type.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims represents the session JWT claims issued by the identity provider.
// The subject is the user id.
type TokenClaims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}
