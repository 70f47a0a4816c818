// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"eventos/config"
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

const (
	defaultEmailVerificationTTL      = 24 * time.Hour
	defaultPasswordResetTTL          = time.Hour
	defaultForgotPasswordMinDuration = 400 * time.Millisecond
	resetMailTimeout                 = 30 * time.Second

	// dummyPassword is hashed once and compared against when the login email
	// is unknown, so both paths pay for one bcrypt comparison.
	dummyPassword = "eventos-timing-equaliser"
)

// authService implements usecase.AuthUsecase.
type authService struct {
	txManager      repository.TransactionManager
	userRepo       repository.UserRepository
	hasher         service.PasswordHasher
	tokenService   service.TokenService
	tokenGenerator service.TokenGenerator
	mailer         service.MailDispatcher
	logger         *slog.Logger
	now            func() time.Time

	emailVerificationTTL      time.Duration
	passwordResetTTL          time.Duration
	forgotPasswordMinDuration time.Duration

	dummyHashOnce sync.Once
	dummyHash     string

	// resetMails tracks reset mails sent outside the request.
	resetMails sync.WaitGroup
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager      repository.TransactionManager
	UserRepo       repository.UserRepository
	Hasher         service.PasswordHasher
	TokenService   service.TokenService
	TokenGenerator service.TokenGenerator
	Mailer         service.MailDispatcher
	Config         *config.Config
	Logger         *slog.Logger
}

// NewAuthService is the constructor for authService.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return newAuthService(params)
}

func newAuthService(params AuthServiceParams) *authService {
	srv := &authService{
		txManager:                 params.TxManager,
		userRepo:                  params.UserRepo,
		hasher:                    params.Hasher,
		tokenService:              params.TokenService,
		tokenGenerator:            params.TokenGenerator,
		mailer:                    params.Mailer,
		logger:                    params.Logger,
		now:                       time.Now,
		emailVerificationTTL:      defaultEmailVerificationTTL,
		passwordResetTTL:          defaultPasswordResetTTL,
		forgotPasswordMinDuration: defaultForgotPasswordMinDuration,
	}

	if params.Config != nil && params.Config.Auth != nil {
		auth := params.Config.Auth
		if auth.EmailVerificationTTL > 0 {
			srv.emailVerificationTTL = auth.EmailVerificationTTL
		}
		if auth.PasswordResetTTL > 0 {
			srv.passwordResetTTL = auth.PasswordResetTTL
		}
		if auth.ForgotPasswordMinDuration > 0 {
			srv.forgotPasswordMinDuration = auth.ForgotPasswordMinDuration
		}
	}

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login orchestrates the user login process. Every rejection is reported as
// InvalidCredentials so callers cannot probe which accounts exist.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting user login", slog.String("email", email))

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to find user during login")
	}

	// 1. Compare the password outside any transaction (bcrypt is CPU-bound).
	if user == nil || !user.HasPassword() {
		srv.hasher.Check(input.Password, srv.timingHash())
		srv.log(ctx).Warn("Login rejected", slog.String("email", email), slog.String("reason", "unknown or password-less account"))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}
	if !srv.hasher.Check(input.Password, *user.PasswordHash) {
		srv.log(ctx).Warn("Login rejected", slog.String("email", email), slog.String("reason", "password mismatch"))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	// 2. Account state is checked after the hash so that timing stays flat.
	if !user.CanAuthenticate() {
		srv.log(ctx).Warn("Login rejected", slog.String("email", email), slog.Bool("active", user.IsActive), slog.Bool("verified", user.EmailVerified))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	// 3. Issue the session and record it in the ledger.
	var out *usecase.AuthOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		out, err = srv.issueSession(ctx, repoFactory.RefreshTokenRepo(), user)

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue session during login")
	}
	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return out, nil
}

// timingHash lazily hashes dummyPassword for unknown-account comparisons.
func (srv *authService) timingHash() string {
	srv.dummyHashOnce.Do(func() {
		hash, err := srv.hasher.Hash(dummyPassword)
		if err != nil {
			srv.logger.Error("Failed to prepare timing hash", slog.Any("error", err))

			return
		}
		srv.dummyHash = hash
	})

	return srv.dummyHash
}

// Register creates an unverified local account and mails the verification link.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.MessageOutput, error) {
	email := normalizeEmail(input.Email)
	nick := strings.TrimSpace(input.Nick)
	srv.log(ctx).Info("Starting registration", slog.String("email", email), slog.String("nick", nick))

	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	verificationToken, err := srv.tokenGenerator.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate verification token")
	}

	newUser := &entity.User{
		Email:        email,
		Nick:         nick,
		PasswordHash: &hashedPassword,
		Role:         entity.RoleUser,
		Provider:     entity.ProviderLocal,
		IsActive:     true,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		tokenRepo := repoFactory.VerificationTokenRepo()

		// 1. Reject taken email or nick before touching the unique indexes.
		if err := ensureEmailAvailable(ctx, userRepo, email); err != nil {
			return err
		}
		if err := ensureNickAvailable(ctx, userRepo, nick); err != nil {
			return err
		}

		// 2. Create the account.
		if err := userRepo.Create(ctx, newUser); err != nil {
			return translateUserWriteError(err, "failed to create user during registration")
		}

		// 3. Replace any verification token and issue a fresh one.
		return srv.replaceVerificationToken(ctx, tokenRepo, newUser.ID, entity.VerificationTokenEmail, verificationToken, srv.emailVerificationTTL)
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute user registration transaction")
	}

	// 4. Mail delivery never fails the registration.
	if !srv.mailer.SendVerificationEmail(ctx, newUser.Email, newUser.Nick, verificationToken) {
		srv.log(ctx).Warn("Verification email not sent", slog.Any("userID", newUser.ID))
	}
	srv.log(ctx).Info("Registration completed", slog.Any("userID", newUser.ID))

	return &usecase.MessageOutput{Message: usecase.MessageRegistered}, nil
}

// VerifyEmail consumes an email_verification token and logs the user in.
func (srv *authService) VerifyEmail(ctx context.Context, token string) (*usecase.AuthOutput, error) {
	var (
		verifiedUser *entity.User
		out          *usecase.AuthOutput
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		tokenRepo := repoFactory.VerificationTokenRepo()

		// 1. Resolve the token and its owner.
		record, user, err := srv.consumableToken(ctx, repoFactory, token, entity.VerificationTokenEmail)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return errors.Wrap(domainerrors.ErrUserInactiveOrMissing, "cannot verify a disabled account")
		}

		// 2. Flip the flag and burn the token.
		user.MarkEmailVerified(srv.now())
		if err := userRepo.Update(ctx, user); err != nil {
			return translateUserWriteError(err, "failed to mark email verified")
		}
		if err := tokenRepo.Delete(ctx, record.ID); err != nil {
			return errors.Wrap(err, "failed to delete verification token")
		}

		// 3. Auto-login.
		out, err = srv.issueSession(ctx, repoFactory.RefreshTokenRepo(), user)
		if err != nil {
			return err
		}
		verifiedUser = user

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Email verification failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to verify email")
	}

	if !srv.mailer.SendWelcomeEmail(ctx, verifiedUser.Email, verifiedUser.Nick) {
		srv.log(ctx).Warn("Welcome email not sent", slog.Any("userID", verifiedUser.ID))
	}
	srv.log(ctx).Info("Email verified", slog.Any("userID", verifiedUser.ID))

	return out, nil
}

// ResendVerification replaces the pending verification token and mails it again.
func (srv *authService) ResendVerification(ctx context.Context, email string) (*usecase.MessageOutput, error) {
	email = normalizeEmail(email)

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "resend verification")
		}

		return nil, errors.Wrap(err, "failed to find user for resend verification")
	}
	if user.EmailVerified {
		return nil, errors.Wrap(domainerrors.ErrAlreadyVerified, "resend verification")
	}
	if user.Provider != entity.ProviderLocal {
		return nil, errors.Wrap(domainerrors.ErrUnsupportedProvider, "resend verification")
	}

	token, err := srv.tokenGenerator.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate verification token")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return srv.replaceVerificationToken(ctx, repoFactory.VerificationTokenRepo(), user.ID, entity.VerificationTokenEmail, token, srv.emailVerificationTTL)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to replace verification token")
	}

	if !srv.mailer.SendVerificationEmail(ctx, user.Email, user.Nick, token) {
		srv.log(ctx).Warn("Verification email not sent", slog.Any("userID", user.ID))
	}

	return &usecase.MessageOutput{Message: usecase.MessageVerificationResent}, nil
}

// ForgotPassword answers with the same message, and in no less than the
// configured minimum duration, whether or not the account exists.
func (srv *authService) ForgotPassword(ctx context.Context, email string) (*usecase.MessageOutput, error) {
	deadline := srv.now().Add(srv.forgotPasswordMinDuration)
	defer srv.waitUntil(ctx, deadline)

	email = normalizeEmail(email)
	if err := srv.startPasswordReset(ctx, email); err != nil {
		srv.log(ctx).Error("Password reset request failed", slog.Any("error", err))
	}

	return &usecase.MessageOutput{Message: usecase.MessageForgotPassword}, nil
}

func (srv *authService) startPasswordReset(ctx context.Context, email string) error {
	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Debug("Password reset requested for unknown email")

			return nil
		}

		return errors.Wrap(err, "failed to find user for password reset")
	}
	if user.Provider != entity.ProviderLocal {
		srv.log(ctx).Debug("Password reset requested for external account", slog.Any("userID", user.ID))

		return nil
	}

	token, err := srv.tokenGenerator.Generate()
	if err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return srv.replaceVerificationToken(ctx, repoFactory.VerificationTokenRepo(), user.ID, entity.VerificationTokenPasswordReset, token, srv.passwordResetTTL)
	})
	if err != nil {
		return errors.Wrap(err, "failed to replace reset token")
	}

	srv.sendResetMailDetached(ctx, user, token)

	return nil
}

// sendResetMailDetached keeps broker latency out of the forgot-password
// response, which must take the same time whether or not the account exists.
func (srv *authService) sendResetMailDetached(ctx context.Context, user *entity.User, token string) {
	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetMailTimeout)
	email, nick, userID := user.Email, user.Nick, user.ID

	srv.resetMails.Go(func() {
		defer cancel()

		if !srv.mailer.SendPasswordResetEmail(mailCtx, email, nick, token) {
			srv.log(mailCtx).Warn("Password reset email not sent", slog.Any("userID", userID))
		}
	})
}

// waitUntil sleeps until deadline unless ctx ends first.
func (srv *authService) waitUntil(ctx context.Context, deadline time.Time) {
	remaining := deadline.Sub(srv.now())
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// ResetPassword consumes a password_reset token, sets the new password and
// invalidates every token issued before.
func (srv *authService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) (*usecase.MessageOutput, error) {
	if err := srv.hasher.ValidatePasswordStrength(input.NewPassword); err != nil {
		return nil, err
	}

	hashedPassword, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	var resetUserID string
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()
		tokenRepo := repoFactory.VerificationTokenRepo()
		refreshRepo := repoFactory.RefreshTokenRepo()

		// 1. Resolve the token and its owner.
		record, user, err := srv.consumableToken(ctx, repoFactory, input.Token, entity.VerificationTokenPasswordReset)
		if err != nil {
			return err
		}

		// 2. Store the new hash and bump the version.
		user.PasswordHash = &hashedPassword
		user.BumpTokenVersion()
		if err := userRepo.Update(ctx, user); err != nil {
			return translateUserWriteError(err, "failed to update password")
		}

		// 3. Drop every session and the used token.
		if _, err := refreshRepo.DeleteRefreshTokensByUserID(ctx, user.ID); err != nil {
			return errors.Wrap(err, "failed to delete refresh tokens")
		}
		if err := tokenRepo.Delete(ctx, record.ID); err != nil {
			return errors.Wrap(err, "failed to delete reset token")
		}
		resetUserID = user.ID.String()

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Password reset failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to reset password")
	}
	srv.log(ctx).Info("Password reset", slog.String("userID", resetUserID))

	return &usecase.MessageOutput{Message: usecase.MessagePasswordReset}, nil
}

// ResolveIdentity is the Access Guard's check: signature, expiry, an active
// user and a matching token version.
func (srv *authService) ResolveIdentity(ctx context.Context, accessToken string) (*entity.Identity, error) {
	claims, err := srv.tokenService.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "invalid access token")
	}

	user, err := srv.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUnauthorized, "user no longer exists")
		}

		return nil, errors.Wrap(err, "failed to load user for access token")
	}
	if !user.IsActive {
		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "user is disabled")
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, errors.Wrap(domainerrors.ErrUnauthorized, "access token version is stale")
	}

	return &entity.Identity{
		Sub:    user.ID.String(),
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// --- helpers shared by the workflows ---

// consumableToken loads a verification token of the wanted type together with
// its user. Every failure is InvalidOrExpiredToken.
func (srv *authService) consumableToken(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	raw string,
	tokenType entity.VerificationTokenType,
) (*entity.VerificationToken, *entity.User, error) {
	if raw == "" {
		return nil, nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredToken, "empty token")
	}

	record, err := repoFactory.VerificationTokenRepo().FindByToken(ctx, raw)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationTokenNotFound) {
			return nil, nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredToken, "unknown token")
		}

		return nil, nil, errors.Wrap(err, "failed to find verification token")
	}
	if !record.IsUsableFor(tokenType, srv.now()) {
		return nil, nil, errors.Wrapf(domainerrors.ErrInvalidOrExpiredToken, "token type %s expired or mismatched", record.Type)
	}

	user, err := repoFactory.UserRepo().FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, errors.Wrap(domainerrors.ErrInvalidOrExpiredToken, "token owner no longer exists")
		}

		return nil, nil, errors.Wrap(err, "failed to find token owner")
	}

	return record, user, nil
}

// replaceVerificationToken deletes the user's tokens of that type and stores a new one.
func (srv *authService) replaceVerificationToken(
	ctx context.Context,
	tokenRepo repository.VerificationTokenRepository,
	userID uuid.UUID,
	tokenType entity.VerificationTokenType,
	token string,
	ttl time.Duration,
) error {
	if err := tokenRepo.DeleteByUserAndType(ctx, userID, tokenType); err != nil {
		return errors.Wrap(err, "failed to delete previous verification tokens")
	}

	return errors.WithStack(tokenRepo.Create(ctx, &entity.VerificationToken{
		UserID:    userID,
		Token:     token,
		Type:      tokenType,
		ExpiresAt: srv.now().Add(ttl),
	}))
}

// issueSession signs a token pair and records the refresh token in the ledger.
func (srv *authService) issueSession(ctx context.Context, ledger repository.RefreshTokenRepository, user *entity.User) (*usecase.AuthOutput, error) {
	accessToken, err := srv.tokenService.IssueAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}

	refresh, err := srv.tokenService.IssueRefreshToken(user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue refresh token")
	}

	if err := ledger.CreateRefreshToken(ctx, &entity.RefreshToken{
		UserID:    user.ID,
		TokenHash: refresh.Hash,
		ExpiresAt: refresh.ExpiresAt,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to record refresh token")
	}

	return &usecase.AuthOutput{
		AccessToken:           accessToken,
		RefreshToken:          refresh.Token,
		AccessTokenExpiresIn:  srv.tokenService.AccessTokenTTL(),
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		User:                  user.Public(),
	}, nil
}

func ensureEmailAvailable(ctx context.Context, userRepo repository.UserRepository, email string) error {
	_, err := userRepo.FindByEmail(ctx, email)
	if err == nil {
		return errors.Wrap(domainerrors.ErrDuplicateEmail, email)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}

	return errors.Wrap(err, "failed to check email availability")
}

func ensureNickAvailable(ctx context.Context, userRepo repository.UserRepository, nick string) error {
	_, err := userRepo.FindByNick(ctx, nick)
	if err == nil {
		return errors.Wrap(domainerrors.ErrDuplicateNick, nick)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}

	return errors.Wrap(err, "failed to check nick availability")
}

// translateUserWriteError maps repository sentinels raised by unique indexes
// onto the HTTP-facing taxonomy.
func translateUserWriteError(err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return errors.Wrap(domainerrors.ErrDuplicateEmail, message)
	case errors.Is(err, repository.ErrDuplicateNick):
		return errors.Wrap(domainerrors.ErrDuplicateNick, message)
	case errors.Is(err, repository.ErrUserNotFound):
		return errors.Wrap(domainerrors.ErrUserNotFound, message)
	default:
		return errors.Wrap(err, message)
	}
}
