package handler

import (
	"log/slog"
	"net/http"

	"eventos/internal/delivery/api/middleware"
	"eventos/internal/delivery/api/response"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// SessionHandler lets a user inspect and revoke their own sessions.
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

// RevokedSessionsResponse reports how many sessions a bulk revoke removed.
type RevokedSessionsResponse struct {
	Message string `json:"message"`
	Revoked int64  `json:"revoked"`
}

func (h *SessionHandler) ListSessions(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthorized)
	}

	sessions, err := h.sessionUC.GetActiveSessions(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, sessions)
}

func (h *SessionHandler) RevokeSession(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthorized)
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrSessionNotFound)
	}

	if err := h.sessionUC.RevokeSession(c.Request().Context(), userID, sessionID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, http.StatusOK, usecase.MessageSessionRevoked)
}

// RevokeAllSessions signs the caller out everywhere.
func (h *SessionHandler) RevokeAllSessions(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.HandleAppError(c, domainerrors.ErrUnauthorized)
	}

	revoked, err := h.sessionUC.RevokeAllSessions(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, RevokedSessionsResponse{
		Message: usecase.MessageSessionsRevoked,
		Revoked: revoked,
	})
}
