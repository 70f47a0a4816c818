package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/repository"
	"eventos/internal/domain/service"
	"eventos/internal/errors"
	"eventos/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// userService implements the UserUsecase interface.
type userService struct {
	txManager            repository.TransactionManager
	userRepo             repository.UserRepository
	hasher               service.PasswordHasher
	tokenGenerator       service.TokenGenerator
	mailer               service.MailDispatcher
	logger               *slog.Logger
	now                  func() time.Time
	emailVerificationTTL time.Duration
}

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	UserRepo       repository.UserRepository
	Hasher         service.PasswordHasher
	TokenGenerator service.TokenGenerator
	Mailer         service.MailDispatcher
	Logger         *slog.Logger
}

// NewUserService is the constructor for userService. It receives all dependencies as interfaces.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	return &userService{
		txManager:            params.TxManager,
		userRepo:             params.UserRepo,
		hasher:               params.Hasher,
		tokenGenerator:       params.TokenGenerator,
		mailer:               params.Mailer,
		logger:               params.Logger,
		now:                  time.Now,
		emailVerificationTTL: defaultEmailVerificationTTL,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *userService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func (srv *userService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, id.String())
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	return user, nil
}

func (srv *userService) UserRole(ctx context.Context, id uuid.UUID) (entity.Role, bool, error) {
	user, err := srv.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", false, nil
		}

		return "", false, errors.Wrap(err, "failed to find user role")
	}

	return user.Role, true, nil
}

// UpdateUser applies the profile changes. A changed email or password bumps
// the token version and drops every session; a changed email also requires
// verification again.
func (srv *userService) UpdateUser(ctx context.Context, actor *entity.Identity, targetID uuid.UUID, input *usecase.UpdateUserInput) (*entity.User, error) {
	if actor == nil {
		return nil, errors.WithStack(domainerrors.ErrUnauthorized)
	}
	if (input.Role != nil || input.IsActive != nil) && actor.Role != entity.RoleAdmin {
		return nil, errors.Wrap(domainerrors.ErrForbidden, "only admins can change role or activation")
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("unknown role")
	}

	var hashedPassword *string
	if input.Password != nil {
		if err := srv.hasher.ValidatePasswordStrength(*input.Password); err != nil {
			return nil, err
		}
		hash, err := srv.hasher.Hash(*input.Password)
		if err != nil {
			return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
		}
		hashedPassword = &hash
	}

	var (
		updated           *entity.User
		verificationToken string
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		// 1. Load the target.
		user, err := userRepo.FindByID(ctx, targetID)
		if err != nil {
			return translateUserWriteError(err, "failed to find user to update")
		}

		// 2. Apply the changes.
		invalidate := false
		emailChanged := false

		if input.Email != nil {
			email := normalizeEmail(*input.Email)
			if email != user.Email {
				if err := ensureEmailAvailable(ctx, userRepo, email); err != nil {
					return err
				}
				user.Email = email
				user.EmailVerified = false
				user.EmailVerifiedAt = nil
				emailChanged = true
				invalidate = true
			}
		}
		if input.Nick != nil {
			nick := strings.TrimSpace(*input.Nick)
			if nick != user.Nick {
				if err := ensureNickAvailable(ctx, userRepo, nick); err != nil {
					return err
				}
				user.Nick = nick
			}
		}
		if hashedPassword != nil {
			user.PasswordHash = hashedPassword
			invalidate = true
		}
		if input.Role != nil {
			user.Role = *input.Role
		}
		if input.IsActive != nil {
			user.IsActive = *input.IsActive
		}
		if invalidate {
			user.BumpTokenVersion()
		}

		if err := userRepo.Update(ctx, user); err != nil {
			return translateUserWriteError(err, "failed to update user")
		}

		// 3. Sessions die with the old credentials.
		if invalidate {
			if _, err := repoFactory.RefreshTokenRepo().DeleteRefreshTokensByUserID(ctx, user.ID); err != nil {
				return errors.Wrap(err, "failed to delete refresh tokens")
			}
		}

		// 4. A new email needs a new verification token.
		if emailChanged {
			verificationToken, err = srv.tokenGenerator.Generate()
			if err != nil {
				return errors.Wrap(err, "failed to generate verification token")
			}
			tokenRepo := repoFactory.VerificationTokenRepo()
			if err := tokenRepo.DeleteByUserAndType(ctx, user.ID, entity.VerificationTokenEmail); err != nil {
				return errors.Wrap(err, "failed to delete previous verification tokens")
			}
			if err := tokenRepo.Create(ctx, &entity.VerificationToken{
				UserID:    user.ID,
				Token:     verificationToken,
				Type:      entity.VerificationTokenEmail,
				ExpiresAt: srv.now().Add(srv.emailVerificationTTL),
			}); err != nil {
				return errors.Wrap(err, "failed to create verification token")
			}
		}
		updated = user

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to update user", slog.Any("target_id", targetID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to update user")
	}

	if verificationToken != "" && !srv.mailer.SendVerificationEmail(ctx, updated.Email, updated.Nick, verificationToken) {
		srv.log(ctx).Warn("Verification email not sent", slog.Any("userID", updated.ID))
	}
	srv.log(ctx).Info("User updated", slog.Any("target_id", targetID), slog.Any("actor_id", actor.UserID))

	return updated, nil
}

// DeleteUser removes the account; sessions and verification tokens cascade.
func (srv *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if _, err := repoFactory.RefreshTokenRepo().DeleteRefreshTokensByUserID(ctx, id); err != nil {
			return errors.Wrap(err, "failed to delete refresh tokens")
		}
		if err := repoFactory.VerificationTokenRepo().DeleteByUser(ctx, id); err != nil {
			return errors.Wrap(err, "failed to delete verification tokens")
		}

		return translateUserWriteError(repoFactory.UserRepo().Delete(ctx, id), "failed to delete user")
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete user")
	}
	srv.log(ctx).Info("User deleted", slog.Any("user_id", id))

	return nil
}
