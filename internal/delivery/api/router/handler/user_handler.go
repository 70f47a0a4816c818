package handler

import (
	"log/slog"
	"net/http"
	"time"

	"eventos/internal/delivery/api/response"
	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// UserHandlerParams holds dependencies for UserHandler, injected by Fx.
type UserHandlerParams struct {
	fx.In

	UserUC usecase.UserUsecase
	Logger *slog.Logger
}

// UserHandler serves /users. Authorization is applied by the router.
type UserHandler struct {
	userUC usecase.UserUsecase
	logger *slog.Logger
}

func NewUserHandler(params UserHandlerParams) *UserHandler {
	return &UserHandler{
		userUC: params.UserUC,
		logger: params.Logger,
	}
}

// UpdateUserRequest carries optional profile changes. Role and isActive are
// honoured for ADMIN callers only.
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Nick     *string `json:"nick" validate:"omitempty,min=3,max=30,nick"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72,password"`
	Role     *string `json:"role" validate:"omitempty,oneof=ADMIN MODERATOR USER"`
	IsActive *bool   `json:"isActive"`
}

// UserResponse is the profile view of a user.
type UserResponse struct {
	ID            uuid.UUID   `json:"id"`
	Email         string      `json:"email"`
	Nick          string      `json:"nick"`
	Role          entity.Role `json:"role"`
	Provider      string      `json:"provider"`
	IsActive      bool        `json:"is_active"`
	EmailVerified bool        `json:"email_verified"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func newUserResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Nick:          user.Nick,
		Role:          user.Role,
		Provider:      string(user.Provider),
		IsActive:      user.IsActive,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func (r *UpdateUserRequest) toInput() *usecase.UpdateUserInput {
	input := &usecase.UpdateUserInput{
		Email:    r.Email,
		Nick:     r.Nick,
		Password: r.Password,
		IsActive: r.IsActive,
	}
	if r.Role != nil {
		role := entity.Role(*r.Role)
		input.Role = &role
	}

	return input
}

// GetMe returns the caller's profile.
func (h *UserHandler) GetMe(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return response.HandleAppError(c, domainerrors.ErrUnauthorized)
	}

	return h.getUser(c, identity.UserID)
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return response.HandleAppError(c, domainerrors.ErrUnauthorized)
	}

	return h.updateUser(c, identity, identity.UserID)
}

// GetUser returns any user's profile.
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrUserNotFound)
	}

	return h.getUser(c, id)
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	identity := deliverycontext.GetIdentity(c)
	if identity == nil {
		return response.HandleAppError(c, domainerrors.ErrUnauthorized)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrUserNotFound)
	}

	return h.updateUser(c, identity, id)
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.HandleAppError(c, domainerrors.ErrUserNotFound)
	}

	if err := h.userUC.DeleteUser(c.Request().Context(), id); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Message(c, http.StatusOK, usecase.MessageUserDeleted)
}

func (h *UserHandler) getUser(c echo.Context, id uuid.UUID) error {
	user, err := h.userUC.GetUser(c.Request().Context(), id)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}

func (h *UserHandler) updateUser(c echo.Context, actor *entity.Identity, targetID uuid.UUID) error {
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return response.HandleAppError(c, err)
	}

	user, err := h.userUC.UpdateUser(c.Request().Context(), actor, targetID, req.toInput())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUserResponse(user))
}
