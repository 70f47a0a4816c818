package repository

import (
	"context"
	"errors"
	"time"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrRefreshTokenNotFound is returned when no ledger row matches.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// ErrRefreshTokenAlreadyRevoked is returned by MarkRotated when another
	// request rotated the row first.
	ErrRefreshTokenAlreadyRevoked = errors.New("refresh token already revoked")
)

// RefreshTokenRepository is the Refresh Token Ledger.
type RefreshTokenRepository interface {
	// CreateRefreshToken inserts a new ledger row.
	CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error

	// FindRefreshTokenByHash returns the row regardless of revocation or expiry.
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error)

	// FindRefreshTokenByID returns the row regardless of revocation or expiry.
	FindRefreshTokenByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error)

	// FindLiveRefreshTokensByUserID lists unrevoked, unexpired rows, newest first.
	FindLiveRefreshTokensByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*entity.RefreshToken, error)

	// MarkRotated revokes the row and links its successor. It only succeeds
	// while the row is unrevoked, so concurrent rotations of one token cannot
	// both win.
	MarkRotated(ctx context.Context, id uuid.UUID, revokedAt time.Time, successorHash string) error

	// DeleteRefreshToken removes one row by ID.
	DeleteRefreshToken(ctx context.Context, id uuid.UUID) error

	// DeleteRefreshTokenByHash removes the rows matching the hash and reports how many went.
	DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) (int64, error)

	// DeleteRefreshTokensByUserID removes every row of a user.
	DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// DeleteStaleRefreshTokens removes rows expired before now or revoked before revokedBefore.
	DeleteStaleRefreshTokens(ctx context.Context, now, revokedBefore time.Time) (int64, error)
}
