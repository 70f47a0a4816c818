package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionInfo is the caller-facing view of a live ledger row.
type SessionInfo struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity is what the access guard attaches to an authenticated request.
type Identity struct {
	Sub    string
	UserID uuid.UUID
	Email  string
	Role   Role
}
