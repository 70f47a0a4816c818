// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail and ErrDuplicateNick are returned when a unique index rejects a write.
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrDuplicateNick  = errors.New("duplicate nick")
)

// UserRepository is the Credential Store.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByNick retrieves a single user by their display name.
	FindByNick(ctx context.Context, nick string) (*entity.User, error)

	// Create persists a new user entity to the storage.
	Create(ctx context.Context, user *entity.User) error

	// Update writes every mutable column of the user.
	Update(ctx context.Context, user *entity.User) error

	// Delete removes the user together with its tokens.
	Delete(ctx context.Context, id uuid.UUID) error
}
