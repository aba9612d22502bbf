package domain

import (
	"strings"
	"time"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	IsVerified   bool
	DateJoined   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role collapses the staff and superuser flags into a single access level.
func (u User) Role() Role {
	return RoleFromFlags(u.IsStaff, u.IsSuperuser)
}

// Sanitized returns a copy of the user without the password hash.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// Identity is the authenticated principal attached to a single request.
type Identity struct {
	UserID   string
	Email    string
	Username string
	Role     Role
	TokenKey string
}

// NewIdentity derives an Identity from a user record.
func NewIdentity(user User, tokenKey string) Identity {
	return Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role(),
		TokenKey: tokenKey,
	}
}

// ProfilePatch carries the user-editable profile fields. Nil fields are left unchanged.
type ProfilePatch struct {
	Email    *string
	Username *string
}

// PasswordContext supplies user inputs that password strength checks should penalise.
type PasswordContext struct {
	Email    string
	Username string
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
