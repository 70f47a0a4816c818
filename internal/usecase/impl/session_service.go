package impl

import (
	"context"
	"log/slog"
	"time"

	"eventos/config"
	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

const defaultRevokedRetention = 7 * 24 * time.Hour

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager        repository.TransactionManager
	logger           *slog.Logger
	revokedRetention time.Duration
	now              func() time.Time
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Config    *config.Config
	Logger    *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	retention := defaultRevokedRetention
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.RevokedRetention > 0 {
		retention = params.Config.Auth.RevokedRetention
	}

	return &sessionService{
		txManager:        params.TxManager,
		logger:           params.Logger,
		revokedRetention: retention,
		now:              time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// GetActiveSessions lists the caller's unrevoked, unexpired ledger rows.
func (srv *sessionService) GetActiveSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionInfo, error) {
	srv.log(ctx).Debug("Getting active sessions", slog.Any("user_id", userID))

	var sessions []*entity.SessionInfo

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokens, err := repoFactory.RefreshTokenRepo().FindLiveRefreshTokensByUserID(ctx, userID, srv.now())
		if err != nil {
			return errors.Wrap(err, "failed to find refresh tokens")
		}

		sessions = make([]*entity.SessionInfo, 0, len(tokens))
		for _, token := range tokens {
			sessions = append(sessions, &entity.SessionInfo{
				ID:        token.ID,
				CreatedAt: token.CreatedAt,
				ExpiresAt: token.ExpiresAt,
			})
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to get active sessions", slog.Any("error", err), slog.Any("user_id", userID))

		return nil, errors.Wrap(err, "failed to get active sessions")
	}
	srv.log(ctx).Debug("Successfully retrieved active sessions", slog.Any("user_id", userID), slog.Int("count", len(sessions)))

	return sessions, nil
}

// RevokeSession revokes a specific session.
func (srv *sessionService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	srv.log(ctx).Info("Revoking session", slog.Any("user_id", userID), slog.Any("session_id", sessionID))

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		// 1. Find the session
		token, err := refreshRepo.FindRefreshTokenByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrSessionNotFound, "session not found")
			}

			return errors.Wrap(err, "failed to find session")
		}

		// 2. Verify ownership
		if token.UserID != userID {
			return errors.Wrap(domainerrors.ErrForbidden, "session does not belong to user")
		}

		// 3. Delete the session
		if err := refreshRepo.DeleteRefreshToken(ctx, sessionID); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(domainerrors.ErrSessionNotFound, "session already gone")
			}

			return errors.Wrap(err, "failed to delete session")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to revoke session", slog.Any("error", err), slog.Any("user_id", userID), slog.Any("session_id", sessionID))

		return errors.Wrap(err, "failed to revoke session")
	}

	return nil
}

// RevokeAllSessions deletes every ledger row of the user.
func (srv *sessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var deleted int64

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		deleted, err = repoFactory.RefreshTokenRepo().DeleteRefreshTokensByUserID(ctx, userID)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.Any("error", err), slog.Any("user_id", userID))

		return 0, errors.Wrap(err, "failed to revoke all sessions")
	}
	srv.log(ctx).Info("Revoked all sessions", slog.Any("user_id", userID), slog.Int64("count", deleted))

	return deleted, nil
}

// CleanupExpiredSessions removes expired rows and rows revoked longer ago than the retention.
// Revoked rows are kept for a while so that replays of rotated tokens are still detected.
func (srv *sessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	now := srv.now()

	var deleted int64
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		deleted, err = repoFactory.RefreshTokenRepo().DeleteStaleRefreshTokens(ctx, now, now.Add(-srv.revokedRetention))

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to cleanup expired sessions", slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to cleanup expired sessions")
	}
	srv.log(ctx).Info("Cleaned up expired sessions", slog.Int64("count", deleted))

	return deleted, nil
}
