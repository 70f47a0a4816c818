package usecase

import (
	"context"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionUsecase defines the interface for session management operations.
type SessionUsecase interface {
	GetActiveSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionInfo, error)
	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error)

	// CleanupExpiredSessions purges expired and long-revoked ledger rows.
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}
