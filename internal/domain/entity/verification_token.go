package entity

import (
	"time"

	"github.com/google/uuid"
)

// VerificationTokenType distinguishes the credential workflows a token can complete.
type VerificationTokenType string

const (
	VerificationTokenEmail         VerificationTokenType = "email_verification"
	VerificationTokenPasswordReset VerificationTokenType = "password_reset"
)

func (t VerificationTokenType) String() string {
	return string(t)
}

// VerificationToken is a single-use token mailed to the user.
type VerificationToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string // Opaque random value; unique.
	Type      VerificationTokenType
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsUsableFor reports whether the token completes the given workflow at now.
func (t *VerificationToken) IsUsableFor(tokenType VerificationTokenType, now time.Time) bool {
	return t.Type == tokenType && t.ExpiresAt.After(now)
}
