package handler

import (
	"net/http"
	"strings"
	"time"

	"eventos/config"
	"eventos/internal/delivery/api/middleware"
	"eventos/internal/usecase"

	"github.com/labstack/echo/v4"
)

const refreshCookiePath = "/auth"

// tokenCookies writes and clears the httpOnly token cookies.
type tokenCookies struct {
	cfg config.CookieConfig
	now func() time.Time
}

func newTokenCookies(cfg *config.Config) tokenCookies {
	c := tokenCookies{now: time.Now}
	if cfg.Auth != nil {
		c.cfg = cfg.Auth.Cookie
	}

	return c
}

func (tc tokenCookies) set(c echo.Context, out *usecase.AuthOutput) {
	if !tc.cfg.Enabled {
		return
	}

	c.SetCookie(tc.cookie(middleware.AccessTokenCookie, out.AccessToken, "/", int(out.AccessTokenExpiresIn.Seconds())))

	refreshMaxAge := int(out.RefreshTokenExpiresAt.Sub(tc.now()).Seconds())
	if refreshMaxAge < 1 {
		refreshMaxAge = 1
	}
	c.SetCookie(tc.cookie(middleware.RefreshTokenCookie, out.RefreshToken, refreshCookiePath, refreshMaxAge))
}

func (tc tokenCookies) clear(c echo.Context) {
	if !tc.cfg.Enabled {
		return
	}

	c.SetCookie(tc.cookie(middleware.AccessTokenCookie, "", "/", -1))
	c.SetCookie(tc.cookie(middleware.RefreshTokenCookie, "", refreshCookiePath, -1))
}

func (tc tokenCookies) cookie(name, value, path string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   tc.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   tc.cfg.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(tc.cfg.SameSite),
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// refreshToken reads the refresh token from the Authorization header first,
// then from its cookie.
func refreshToken(c echo.Context) string {
	if token := middleware.BearerToken(c); token != "" {
		return token
	}
	if cookie, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}
