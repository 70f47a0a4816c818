// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"eventos/internal/domain/entity"
)

// --- Input DTOs ---

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput defines the data required to register a new local account.
type RegisterInput struct {
	Email    string
	Nick     string
	Password string
}

// ResetPasswordInput carries the mailed reset token and the replacement password.
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

// --- Output DTOs ---

// AuthOutput is returned whenever a new session is issued.
type AuthOutput struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresIn  time.Duration
	RefreshTokenExpiresAt time.Time
	User                  entity.PublicUser
}

// MessageOutput is the acknowledgement returned by mail-driven workflows.
type MessageOutput struct {
	Message string
}

// Acknowledgement messages.
const (
	MessageRegistered           = "Registration successful. Please check your email to verify your account."
	MessageVerificationResent   = "Verification email sent. Please check your inbox."
	MessageForgotPassword       = "If an account with that email exists, a password reset link has been sent."
	MessagePasswordReset        = "Password reset successful. You can now login with your new password."
	MessageLoggedOut            = "Logged out successfully."
	MessageSessionsRevoked      = "All sessions revoked."
	MessageSessionRevoked       = "Session revoked."
	MessageUserDeleted          = "User deleted."
	MessageEventDeleted         = "Event deleted."
	MessageVerificationRequired = "Email changed. Please verify the new address."
)

// AuthUsecase is the Session Service: the only writer of the refresh token
// ledger and the verification tokens.
type AuthUsecase interface {
	Login(ctx context.Context, input *LoginInput) (*AuthOutput, error)
	Register(ctx context.Context, input *RegisterInput) (*MessageOutput, error)
	VerifyEmail(ctx context.Context, token string) (*AuthOutput, error)
	ResendVerification(ctx context.Context, email string) (*MessageOutput, error)
	ForgotPassword(ctx context.Context, email string) (*MessageOutput, error)
	ResetPassword(ctx context.Context, input *ResetPasswordInput) (*MessageOutput, error)

	// Refresh exchanges a refresh token for a new pair. Each refresh token works
	// exactly once; a replay revokes every session of the user.
	Refresh(ctx context.Context, rawRefreshToken string) (*AuthOutput, error)

	// Logout forgets the refresh token. Unknown tokens are not an error.
	Logout(ctx context.Context, rawRefreshToken string) error

	// ResolveIdentity validates an access token against the current user record.
	ResolveIdentity(ctx context.Context, accessToken string) (*entity.Identity, error)
}
