package service

import (
	"time"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessClaims is the verified payload of an access token.
type AccessClaims struct {
	Subject      uuid.UUID
	Email        string
	Role         entity.Role
	TokenVersion int
	ExpiresAt    time.Time
}

// RefreshClaims is the verified payload of a refresh token.
type RefreshClaims struct {
	Subject      uuid.UUID
	TokenVersion int
	JTI          string
	ExpiresAt    time.Time
}

// IssuedRefreshToken is a freshly signed refresh token together with the
// values the ledger needs.
type IssuedRefreshToken struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}

// TokenService is the Token Issuer. It signs and verifies tokens and never
// persists anything.
type TokenService interface {
	// IssueAccessToken signs {sub, email, role, tokenVersion} with the access secret.
	IssueAccessToken(user *entity.User) (string, error)

	// IssueRefreshToken signs {sub, tokenVersion, jti, type:"refresh"} with the refresh secret.
	IssueRefreshToken(user *entity.User) (*IssuedRefreshToken, error)

	// VerifyAccessToken fails with an InvalidToken error on bad signature, expiry or type.
	VerifyAccessToken(token string) (*AccessClaims, error)

	// VerifyRefreshToken fails with an InvalidToken error on bad signature, expiry or type.
	VerifyRefreshToken(token string) (*RefreshClaims, error)

	// HashToken is the deterministic one-way digest used for ledger lookups.
	HashToken(token string) string

	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// TokenGenerator produces opaque single-use tokens for mailed links.
type TokenGenerator interface {
	Generate() (string, error)
}
