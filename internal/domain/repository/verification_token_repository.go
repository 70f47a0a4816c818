package repository

import (
	"context"
	"errors"

	"eventos/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrVerificationTokenNotFound is returned when no token matches the raw value.
var ErrVerificationTokenNotFound = errors.New("verification token not found")

// VerificationTokenRepository stores single-use workflow tokens.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *entity.VerificationToken) error

	// FindByToken looks a token up by its raw value, expired or not.
	FindByToken(ctx context.Context, token string) (*entity.VerificationToken, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByUserAndType removes every token of that type for the user.
	DeleteByUserAndType(ctx context.Context, userID uuid.UUID, tokenType entity.VerificationTokenType) error

	// DeleteByUser removes every token of the user.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
