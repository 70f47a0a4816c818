package postgres

import (
	"context"

	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/errors"
	"eventos/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type verificationTokenRepository struct {
	db *gorm.DB
}

// NewVerificationTokenRepository is the constructor for verificationTokenRepository.
func NewVerificationTokenRepository(db *gorm.DB) repository.VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (repo *verificationTokenRepository) Create(ctx context.Context, token *entity.VerificationToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	tokenM := &model.VerificationTokenModel{
		ID:        token.ID,
		UserID:    token.UserID,
		Token:     token.Token,
		Type:      token.Type.String(),
		ExpiresAt: token.ExpiresAt,
	}

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrConflict.WrapMessage("verification token already exists")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create verification token")
	}

	token.CreatedAt = tokenM.CreatedAt

	return nil
}

func (repo *verificationTokenRepository) FindByToken(ctx context.Context, token string) (*entity.VerificationToken, error) {
	var tokenM model.VerificationTokenModel
	if err := repo.db.WithContext(ctx).Where("token = ?", token).First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrVerificationTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find verification token")
	}

	return &entity.VerificationToken{
		ID:        tokenM.ID,
		UserID:    tokenM.UserID,
		Token:     tokenM.Token,
		Type:      entity.VerificationTokenType(tokenM.Type),
		ExpiresAt: tokenM.ExpiresAt,
		CreatedAt: tokenM.CreatedAt,
	}, nil
}

func (repo *verificationTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := repo.db.WithContext(ctx).Delete(&model.VerificationTokenModel{}, "id = ?", id).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete verification token")
	}

	return nil
}

func (repo *verificationTokenRepository) DeleteByUserAndType(ctx context.Context, userID uuid.UUID, tokenType entity.VerificationTokenType) error {
	err := repo.db.WithContext(ctx).
		Delete(&model.VerificationTokenModel{}, "user_id = ? AND type = ?", userID, tokenType.String()).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete verification tokens")
	}

	return nil
}

func (repo *verificationTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).Delete(&model.VerificationTokenModel{}, "user_id = ?", userID).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete verification tokens")
	}

	return nil
}
