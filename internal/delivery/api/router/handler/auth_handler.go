package handler

import (
	"log/slog"
	"net/http"

	"eventos/config"
	"eventos/internal/delivery/api/response"
	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Config *config.Config
	Logger *slog.Logger
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	authUC  usecase.AuthUsecase
	cookies tokenCookies
	logger  *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC:  params.AuthUC,
		cookies: newTokenCookies(params.Config),
		logger:  params.Logger,
	}
}

// LoginRequest represents the request body for password login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for creating a local account
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Nick     string `json:"nick" validate:"required,min=3,max=30,nick"`
	Password string `json:"password" validate:"required,min=8,max=72,password"`
}

type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,password"`
}

// AuthResponse is returned whenever a session is issued.
type AuthResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	User         entity.PublicUser `json:"user"`
}

func newAuthResponse(out *usecase.AuthOutput) AuthResponse {
	return AuthResponse{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(out.AccessTokenExpiresIn.Seconds()),
		User:         out.User,
	}
}

// bind decodes the body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("malformed request body")
	}

	return c.Validate(req)
}

// Login handles password login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.cookies.set(c, out)

	return response.Success(c, http.StatusOK, newAuthResponse(out))
}

// Register handles local account creation
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.authUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Email:    req.Email,
		Nick:     req.Nick,
		Password: req.Password,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, http.StatusCreated, out.Message)
}

// VerifyEmail consumes a verification token and logs the user in
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req TokenRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.authUC.VerifyEmail(c.Request().Context(), req.Token)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	h.cookies.set(c, out)

	return response.Success(c, http.StatusOK, newAuthResponse(out))
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.authUC.ResendVerification(c.Request().Context(), req.Email)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, http.StatusOK, out.Message)
}

// ForgotPassword always answers with the same message.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.authUC.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, http.StatusOK, out.Message)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.authUC.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, http.StatusOK, out.Message)
}

// Refresh rotates the presented refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	out, err := h.authUC.Refresh(c.Request().Context(), refreshToken(c))
	if err != nil {
		h.cookies.clear(c)

		return response.HandleAppError(c, err)
	}

	h.cookies.set(c, out)

	return response.Success(c, http.StatusOK, newAuthResponse(out))
}

// Logout forgets the presented refresh token and clears the cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authUC.Logout(c.Request().Context(), refreshToken(c)); err != nil {
		return response.HandleAppError(c, err)
	}

	h.cookies.clear(c)
	deliverycontext.GetLoggerOrDefault(c.Request().Context(), h.logger).Debug("Logged out")

	return response.Message(c, http.StatusOK, usecase.MessageLoggedOut)
}
