package service

import "context"

// MailDispatcher sends transactional mails. Every method reports success as
// a bool and never returns an error into the caller: a failed send must not
// fail the operation that triggered it.
type MailDispatcher interface {
	SendVerificationEmail(ctx context.Context, email, nick, token string) bool
	SendPasswordResetEmail(ctx context.Context, email, nick, token string) bool
	SendWelcomeEmail(ctx context.Context, email, nick string) bool
}
