// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/errors"
	"eventos/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// userRepository implements repository.UserRepository using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns the repository as a domain interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.findOne(ctx, "find user by id", "id = ?", id)
}

// FindByEmail matches the stored, already normalised email exactly.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return repo.findOne(ctx, "find user by email", "email = ?", email)
}

func (repo *userRepository) FindByNick(ctx context.Context, nick string) (*entity.User, error) {
	return repo.findOne(ctx, "find user by nick", "nick = ?", nick)
}

func (repo *userRepository) findOne(ctx context.Context, op string, query string, args ...any) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).Where(query, args...).First(&userM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to "+op)
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user. A missing ID is generated here so the caller
// can reference the row in the same transaction.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	userM := fromUserDomain(user)

	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		return mapUserWriteError(err, "failed to create user")
	}

	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

func (repo *userRepository) Update(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)
	userM.UpdatedAt = time.Now()

	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{ID: user.ID}).
		Select("email", "nick", "password_hash", "role", "provider", "is_active",
			"email_verified", "email_verified_at", "token_version", "updated_at").
		Updates(userM)
	if result.Error != nil {
		return mapUserWriteError(result.Error, "failed to update user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// Delete removes the user; ledger and verification rows cascade, events are orphaned.
func (repo *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Delete(&model.UserModel{}, "id = ?", id)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete user")
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

func mapUserWriteError(err error, details string) error {
	switch {
	case isUniqueConstraintViolation(err) && violatesConstraint(err, uniqueUsersEmail):
		return errors.WithStack(repository.ErrDuplicateEmail)
	case isUniqueConstraintViolation(err) && violatesConstraint(err, uniqueUsersNick):
		return errors.WithStack(repository.ErrDuplicateNick)
	case isUniqueConstraintViolation(err):
		return domainerrors.ErrConflict.WrapMessage(details)
	case isNotNullConstraintViolation(err), isCheckConstraintViolation(err):
		return domainerrors.ErrValidationFailed.WrapMessage(details)
	default:
		return domainerrors.NewDatabaseExecuteError(err, details)
	}
}

// --- Mapper Functions ---

func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:              data.ID,
		Email:           data.Email,
		Nick:            data.Nick,
		PasswordHash:    data.PasswordHash,
		Role:            entity.Role(data.Role),
		Provider:        entity.Provider(data.Provider),
		IsActive:        data.IsActive,
		EmailVerified:   data.EmailVerified,
		EmailVerifiedAt: data.EmailVerifiedAt,
		TokenVersion:    data.TokenVersion,
		CreatedAt:       data.CreatedAt,
		UpdatedAt:       data.UpdatedAt,
	}
}

func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:              data.ID,
		Email:           data.Email,
		Nick:            data.Nick,
		PasswordHash:    data.PasswordHash,
		Role:            data.Role.String(),
		Provider:        data.Provider.String(),
		IsActive:        data.IsActive,
		EmailVerified:   data.EmailVerified,
		EmailVerifiedAt: data.EmailVerifiedAt,
		TokenVersion:    data.TokenVersion,
		CreatedAt:       data.CreatedAt,
		UpdatedAt:       data.UpdatedAt,
	}
}
