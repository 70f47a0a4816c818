package usecase

import (
	"context"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

// UpdateUserInput holds the optional profile changes. Nil fields are left alone.
type UpdateUserInput struct {
	Email    *string
	Nick     *string
	Password *string
	Role     *entity.Role
	IsActive *bool
}

// UserUsecase manages user profiles.
type UserUsecase interface {
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// UpdateUser applies input to the target on behalf of actor. Only ADMIN may
	// change role or activation. Email and password changes invalidate sessions.
	UpdateUser(ctx context.Context, actor *entity.Identity, targetID uuid.UUID, input *UpdateUserInput) (*entity.User, error)

	DeleteUser(ctx context.Context, id uuid.UUID) error

	// UserRole reports the role of a user for authorization decisions.
	UserRole(ctx context.Context, id uuid.UUID) (entity.Role, bool, error)
}
