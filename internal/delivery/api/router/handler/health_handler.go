package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"eventos/internal/delivery/api/response"
	deliverycontext "eventos/internal/delivery/context"
	domainerrors "eventos/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const healthPingTimeout = 2 * time.Second

// DatabasePinger reports whether the database answers.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

type HealthHandlerParams struct {
	fx.In

	Pinger DatabasePinger
	Logger *slog.Logger
}

type HealthHandler struct {
	pinger DatabasePinger
	logger *slog.Logger
}

func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		pinger: params.Pinger,
		logger: params.Logger,
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Check pings the database; 503 when it does not answer in time.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, h.logger).Warn("Health check failed", slog.Any("error", err))

		return response.HandleAppError(c, domainerrors.ErrServiceUnavailable)
	}

	return response.Success(c, http.StatusOK, HealthResponse{Status: "ok"})
}
