// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record every session and resource hangs off.
type User struct {
	ID              uuid.UUID  // The Global Unique Identifier (GUID) for the user.
	Email           string     // Unique login identifier.
	Nick            string     // Unique public display name.
	PasswordHash    *string    // bcrypt digest; nil for accounts created by an external provider.
	Role            Role       // ADMIN, MODERATOR or USER.
	Provider        Provider   // Where the credentials live.
	IsActive        bool       // Disabled accounts can neither log in nor refresh.
	EmailVerified   bool       // LOCAL accounts are unusable until this is true.
	EmailVerifiedAt *time.Time // When the verification token was consumed.
	TokenVersion    int        // Bumped on password/email change; older tokens stop working.
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether the user can authenticate with a password at all.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// CanAuthenticate reports whether the account is allowed to hold a session.
// A LOCAL account must have verified its email first.
func (u *User) CanAuthenticate() bool {
	if !u.IsActive {
		return false
	}

	return u.Provider != ProviderLocal || u.EmailVerified
}

// MarkEmailVerified flips the verification flag and stamps the time.
func (u *User) MarkEmailVerified(at time.Time) {
	u.EmailVerified = true
	u.EmailVerifiedAt = &at
}

// BumpTokenVersion invalidates every access and refresh token issued so far.
func (u *User) BumpTokenVersion() {
	u.TokenVersion++
}

// PublicUser is the subset of user fields safe to return from auth endpoints.
type PublicUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Nick  string    `json:"nick"`
	Role  Role      `json:"role"`
}

// Public projects the user onto its public fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Nick:  u.Nick,
		Role:  u.Role,
	}
}
