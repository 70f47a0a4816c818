package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"eventos/config"
	deliverycontext "eventos/internal/delivery/context"
	"eventos/internal/domain/entity"
	"eventos/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newDryRunDB builds statements against the postgres dialect without a server.
func newDryRunDB(t *testing.T) (*gorm.DB, *bytes.Buffer) {
	t.Helper()

	buf := new(bytes.Buffer)
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := &config.Config{}
	cfg.Env.Debug = true

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		DSN: "host=127.0.0.1 user=eventos dbname=eventos sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(logger, cfg),
	})
	require.NoError(t, err)

	return db, buf
}

func TestSQLLogger_NeverWritesBoundValues(t *testing.T) {
	db, buf := newDryRunDB(t)
	ctx := context.Background()

	const rawToken = "RAW-RESET-TOKEN-abcdef"
	const tokenHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

	_, _ = NewVerificationTokenRepository(db).FindByToken(ctx, rawToken)
	require.NoError(t, NewVerificationTokenRepository(db).Create(ctx, &entity.VerificationToken{
		UserID:    uuid.New(),
		Token:     rawToken,
		Type:      entity.VerificationTokenPasswordReset,
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	_, _ = NewRefreshTokenRepository(db).FindRefreshTokenByHash(ctx, tokenHash)
	_, _ = NewRefreshTokenRepository(db).DeleteRefreshTokenByHash(ctx, tokenHash)

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `WHERE token = $1`)
	assert.Contains(t, out, `token_hash = $1`)
	assert.NotContains(t, out, rawToken)
	assert.NotContains(t, out, tokenHash)
}

func TestSQLLogger_UsesRequestLogger(t *testing.T) {
	db, buf := newDryRunDB(t)

	base := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := deliverycontext.WithLogger(context.Background(), base.With(slog.String("request_id", "req-7")))

	_, _ = NewRefreshTokenRepository(db).FindRefreshTokenByID(ctx, uuid.New())

	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
}

func TestRefreshTokenRepository_MarkRotatedIsConditional(t *testing.T) {
	db, _ := newDryRunDB(t)

	var statement string
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:capture_update", func(tx *gorm.DB) {
		statement = tx.Statement.SQL.String()
	}))

	err := NewRefreshTokenRepository(db).MarkRotated(context.Background(), uuid.New(), time.Now(), "successor-hash")

	// No row is touched in dry run, which is exactly the lost-race outcome.
	require.ErrorIs(t, err, repository.ErrRefreshTokenAlreadyRevoked)
	assert.Contains(t, statement, `UPDATE "refresh_tokens" SET`)
	assert.Contains(t, statement, `"revoked_at"=`)
	assert.Contains(t, statement, `"replaced_by_token_hash"=`)
	assert.Contains(t, statement, `WHERE id = $`)
	assert.Contains(t, statement, `AND revoked_at IS NULL`)
}
