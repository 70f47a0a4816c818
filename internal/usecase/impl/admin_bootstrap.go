package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"eventos/config"
	"eventos/internal/domain/entity"
	"eventos/internal/domain/lifecycle"
	"eventos/internal/domain/repository"
	"eventos/internal/domain/service"
	"eventos/internal/errors"

	"go.uber.org/fx"
)

const defaultAdminNick = "admin"

// AdminBootstrapper makes sure the configured admin account exists and can log in.
type AdminBootstrapper struct {
	txManager repository.TransactionManager
	hasher    service.PasswordHasher
	admin     *config.AdminConfig
	logger    *slog.Logger
	now       func() time.Time
}

// AdminBootstrapParams holds dependencies for the bootstrapper, injected by Fx.
type AdminBootstrapParams struct {
	fx.In
	fx.Lifecycle

	TxManager repository.TransactionManager
	Hasher    service.PasswordHasher
	Config    *config.Config
	Logger    *slog.Logger
}

// NewAdminBootstrapper is the constructor for AdminBootstrapper.
func NewAdminBootstrapper(params AdminBootstrapParams) *AdminBootstrapper {
	return &AdminBootstrapper{
		txManager: params.TxManager,
		hasher:    params.Hasher,
		admin:     params.Config.Admin,
		logger:    params.Logger,
		now:       time.Now,
	}
}

// RegisterAdminBootstrap runs the bootstrap once the database is reachable.
func RegisterAdminBootstrap(params AdminBootstrapParams) {
	bootstrapper := NewAdminBootstrapper(params)

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			// Startup never fails because of the admin account.
			if err := bootstrapper.Run(ctx); err != nil {
				params.Logger.ErrorContext(ctx, "Admin bootstrap failed", slog.Any("error", err))
			}

			return nil
		},
	})
}

// Run creates the admin if missing, or marks an unverified one verified.
// An existing account's password and role are left untouched.
func (b *AdminBootstrapper) Run(ctx context.Context) error {
	if b.admin == nil || strings.TrimSpace(b.admin.Email) == "" || b.admin.Password == "" {
		b.logger.DebugContext(ctx, "Admin bootstrap skipped, no credentials configured")

		return nil
	}

	email := normalizeEmail(b.admin.Email)
	nick := strings.TrimSpace(b.admin.Nick)
	if nick == "" {
		nick = defaultAdminNick
	}

	err := b.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		existing, err := userRepo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			if existing.EmailVerified {
				b.logger.InfoContext(ctx, "Admin account already present", slog.Any("userID", existing.ID))

				return nil
			}
			existing.MarkEmailVerified(b.now())
			if err := userRepo.Update(ctx, existing); err != nil {
				return errors.Wrap(err, "failed to verify admin account")
			}
			b.logger.InfoContext(ctx, "Admin account marked verified", slog.Any("userID", existing.ID))

			return nil
		case !errors.Is(err, repository.ErrUserNotFound):
			return errors.Wrap(err, "failed to look up admin account")
		}

		hash, err := b.hasher.Hash(b.admin.Password)
		if err != nil {
			return errors.Wrap(err, "failed to hash admin password")
		}

		admin := &entity.User{
			Email:        email,
			Nick:         nick,
			PasswordHash: &hash,
			Role:         entity.RoleAdmin,
			Provider:     entity.ProviderLocal,
			IsActive:     true,
		}
		admin.MarkEmailVerified(b.now())

		if err := userRepo.Create(ctx, admin); err != nil {
			return errors.Wrap(err, "failed to create admin account")
		}
		b.logger.InfoContext(ctx, "Admin account created", slog.Any("userID", admin.ID))

		return nil
	})
	if errors.Is(err, repository.ErrDuplicateEmail) || errors.Is(err, repository.ErrDuplicateNick) {
		// Another instance won the race, or the nick belongs to someone else.
		b.logger.WarnContext(ctx, "Admin account not created", slog.Any("error", err))

		return nil
	}

	return err
}
