package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "eventos/internal/delivery/context"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Token cookie names, shared with the auth handler that sets them.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

const bearerPrefix = "Bearer "

// AccessGuardParams holds dependencies for AccessGuard, injected by Fx.
type AccessGuardParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Logger *slog.Logger
}

// AccessGuard authenticates requests by access token.
type AccessGuard struct {
	authUC usecase.AuthUsecase
	logger *slog.Logger
}

func NewAccessGuard(params AccessGuardParams) *AccessGuard {
	return &AccessGuard{
		authUC: params.AuthUC,
		logger: params.Logger,
	}
}

// Required rejects requests without a valid access token.
func (g *AccessGuard) Required(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := AccessToken(c)
		if token == "" {
			return errors.WithStack(domainerrors.ErrUnauthorized)
		}

		if err := g.authenticate(c, token); err != nil {
			return err
		}

		return next(c)
	}
}

// Optional lets anonymous requests through but still rejects a bad token,
// so a stale session is never silently downgraded to anonymous.
func (g *AccessGuard) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := AccessToken(c)
		if token == "" {
			return next(c)
		}

		if err := g.authenticate(c, token); err != nil {
			return err
		}

		return next(c)
	}
}

func (g *AccessGuard) authenticate(c echo.Context, token string) error {
	identity, err := g.authUC.ResolveIdentity(c.Request().Context(), token)
	if err != nil {
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), g.logger).
			Debug("Access token rejected", slog.Any("error", err))

		return err
	}

	deliverycontext.SetIdentity(c, identity)

	return nil
}

// AccessToken reads the access token from its cookie first, then from the
// Authorization header.
func AccessToken(c echo.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return BearerToken(c)
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}

// GetUserID returns the authenticated user's ID.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}

	return identity.UserID, true
}
