package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one ledger row for an issued refresh token.
// The raw bearer value is never stored, only its SHA-256 hash.
type RefreshToken struct {
	ID                  uuid.UUID  // The unique ID for this ledger row.
	UserID              uuid.UUID  // Owner of the session.
	TokenHash           string     // Hex SHA-256 of the raw token; unique.
	ExpiresAt           time.Time  // Absolute expiry copied from the signed token.
	RevokedAt           *time.Time // Set when the token was rotated; a revoked row is never accepted again.
	ReplacedByTokenHash *string    // Hash of the rotation successor.
	CreatedAt           time.Time
}

// IsRevoked reports whether the row was already rotated or revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the row is past its expiry at the given instant.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// IsLive reports whether the row could still be exchanged.
func (t *RefreshToken) IsLive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
