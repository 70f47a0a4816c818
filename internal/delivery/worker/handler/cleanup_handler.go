package handler

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// CleanupHandlerParams holds dependencies for the CleanupHandler
type CleanupHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// CleanupHandler purges expired and long-revoked refresh tokens.
type CleanupHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewCleanupHandler creates a new ledger cleanup handler
func NewCleanupHandler(params CleanupHandlerParams) *CleanupHandler {
	return &CleanupHandler{
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

// Run performs one cleanup pass. Each pass gets its own run id in the logs.
func (h *CleanupHandler) Run(ctx context.Context) (int64, error) {
	runID := uuid.New().String()
	logger := h.logger.With(slog.String("run_id", runID))
	ctx = deliverycontext.WithLogger(deliverycontext.WithRequestID(ctx, runID), logger)

	start := time.Now()
	deleted, err := h.sessionUC.CleanupExpiredSessions(ctx)
	if err != nil {
		logger.Error("[Worker] Refresh token cleanup failed", slog.Any("error", err))

		return 0, errors.Wrap(err, "cleanup expired sessions")
	}

	logger.Info("[Worker] Refresh token cleanup finished",
		slog.Int64("deleted", deleted),
		slog.Duration("took", time.Since(start)),
	)

	return deleted, nil
}
