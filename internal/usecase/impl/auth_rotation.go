package impl

import (
	"context"
	"log/slog"

	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
)

// Refresh runs the strict single-use rotation protocol.
//
// Rejections that clean up the ledger (tampering, replay, expiry, stale
// version) must keep their deletes, so the transaction commits and the
// rejection is returned afterwards.
func (srv *authService) Refresh(ctx context.Context, rawRefreshToken string) (*usecase.AuthOutput, error) {
	if rawRefreshToken == "" {
		return nil, errors.WithStack(domainerrors.ErrRefreshTokenMissing)
	}

	// 1. Signature, expiry and type.
	claims, err := srv.tokenService.VerifyRefreshToken(rawRefreshToken)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token failed verification")
	}
	tokenHash := srv.tokenService.HashToken(rawRefreshToken)

	var (
		rejection error
		out       *usecase.AuthOutput
	)

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		ledger := repoFactory.RefreshTokenRepo()

		// 2. Ledger lookup by hash.
		row, err := ledger.FindRefreshTokenByHash(ctx, tokenHash)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				rejection = errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token not in ledger")

				return nil
			}

			return errors.Wrap(err, "failed to find refresh token")
		}

		// 3. Subject mismatch means the row was tampered with.
		if row.UserID != claims.Subject {
			if _, err := ledger.DeleteRefreshTokenByHash(ctx, tokenHash); err != nil {
				return errors.Wrap(err, "failed to delete tampered refresh token")
			}
			srv.log(ctx).Warn("Refresh token subject mismatch", slog.Any("rowUserID", row.UserID), slog.Any("claimUserID", claims.Subject))
			rejection = errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token subject mismatch")

			return nil
		}

		// 4. Replay of a rotated token: revoke the whole family.
		if row.IsRevoked() {
			rejection = errors.Wrap(domainerrors.ErrTokenRevoked, "rotated refresh token replayed")

			return srv.revokeFamily(ctx, ledger, row.UserID, "replay")
		}

		// 5. Expired row.
		now := srv.now()
		if row.IsExpired(now) {
			if err := ledger.DeleteRefreshToken(ctx, row.ID); err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return errors.Wrap(err, "failed to delete expired refresh token")
			}
			rejection = errors.Wrap(domainerrors.ErrTokenExpired, "refresh token expired")

			return nil
		}

		// 6. The user must still be allowed to hold a session.
		user, err := repoFactory.UserRepo().FindByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				rejection = errors.Wrap(domainerrors.ErrUserInactiveOrMissing, "refresh token owner missing")

				return nil
			}

			return errors.Wrap(err, "failed to find refresh token owner")
		}
		if !user.IsActive {
			rejection = errors.Wrap(domainerrors.ErrUserInactiveOrMissing, "refresh token owner disabled")

			return nil
		}
		if user.Provider == entity.ProviderLocal && !user.EmailVerified {
			rejection = errors.Wrap(domainerrors.ErrEmailNotVerified, "refresh token owner unverified")

			return nil
		}

		// 7. A version bump elsewhere killed this chain.
		if claims.TokenVersion != user.TokenVersion {
			if _, err := ledger.DeleteRefreshTokensByUserID(ctx, user.ID); err != nil {
				return errors.Wrap(err, "failed to delete stale refresh tokens")
			}
			rejection = errors.Wrap(domainerrors.ErrInvalidRefreshToken, "refresh token version is stale")

			return nil
		}

		// 8. Sign the successor, claim the predecessor, then record the successor.
		accessToken, err := srv.tokenService.IssueAccessToken(user)
		if err != nil {
			return errors.Wrap(err, "failed to issue access token")
		}
		successor, err := srv.tokenService.IssueRefreshToken(user)
		if err != nil {
			return errors.Wrap(err, "failed to issue refresh token")
		}

		if err := ledger.MarkRotated(ctx, row.ID, now, successor.Hash); err != nil {
			if errors.Is(err, repository.ErrRefreshTokenAlreadyRevoked) {
				// A concurrent refresh won the row.
				rejection = errors.Wrap(domainerrors.ErrTokenRevoked, "refresh token rotated concurrently")

				return srv.revokeFamily(ctx, ledger, row.UserID, "concurrent rotation")
			}

			return errors.Wrap(err, "failed to mark refresh token rotated")
		}

		if err := ledger.CreateRefreshToken(ctx, &entity.RefreshToken{
			UserID:    user.ID,
			TokenHash: successor.Hash,
			ExpiresAt: successor.ExpiresAt,
		}); err != nil {
			return errors.Wrap(err, "failed to record rotated refresh token")
		}

		out = &usecase.AuthOutput{
			AccessToken:           accessToken,
			RefreshToken:          successor.Token,
			AccessTokenExpiresIn:  srv.tokenService.AccessTokenTTL(),
			RefreshTokenExpiresAt: successor.ExpiresAt,
			User:                  user.Public(),
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Refresh transaction failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to refresh session")
	}
	if rejection != nil {
		srv.log(ctx).Info("Refresh rejected", slog.Any("error", rejection))

		return nil, rejection
	}

	return out, nil
}

// revokeFamily deletes every ledger row of the user.
func (srv *authService) revokeFamily(ctx context.Context, ledger repository.RefreshTokenRepository, userID uuid.UUID, reason string) error {
	deleted, err := ledger.DeleteRefreshTokensByUserID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to revoke refresh token family")
	}
	srv.log(ctx).Warn("Refresh token reuse detected, all sessions revoked",
		slog.Any("userID", userID),
		slog.Int64("deleted", deleted),
		slog.String("reason", reason),
	)

	return nil
}

// Logout deletes the ledger row of the token. It is idempotent.
func (srv *authService) Logout(ctx context.Context, rawRefreshToken string) error {
	if rawRefreshToken == "" {
		return errors.WithStack(domainerrors.ErrRefreshTokenMissing)
	}

	tokenHash := srv.tokenService.HashToken(rawRefreshToken)

	var deleted int64
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		deleted, err = repoFactory.RefreshTokenRepo().DeleteRefreshTokenByHash(ctx, tokenHash)

		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete refresh token on logout")
	}
	srv.log(ctx).Debug("Logged out", slog.Int64("deleted", deleted))

	return nil
}
