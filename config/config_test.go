package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretKey_RefreshSecretFallsBackToAccess(t *testing.T) {
	assert.Equal(t, "access", SecretKey{Access: "access"}.RefreshSecret())
	assert.Equal(t, "refresh", SecretKey{Access: "access", Refresh: "refresh"}.RefreshSecret())
}

func TestApplyEnvAliases(t *testing.T) {
	env := map[string]string{
		"JWT_SECRET":               "primary",
		"REFRESH_TOKEN_EXPIRATION": "24h",
		"ADMIN_EMAIL":              "admin@example.dev",
		"ADMIN_PASSWORD":           "Sup3rSecret",
		"FRONTEND_URL":             "https://eventos.example",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]

		return v, ok
	}

	cfg := &Config{}
	cfg.SecretKey.Access = "from-yaml"
	applyEnvAliases(cfg, lookup)

	assert.Equal(t, "primary", cfg.SecretKey.Access)
	assert.Empty(t, cfg.SecretKey.Refresh)
	assert.Equal(t, "24h", cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "admin@example.dev", cfg.Admin.Email)
	assert.Equal(t, "Sup3rSecret", cfg.Admin.Password)
	assert.Equal(t, "https://eventos.example", cfg.Mail.FrontendURL)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{
		RateLimit: &RateLimitConfig{
			Policies: map[string]RateLimitPolicy{
				RateLimitLogin: {Limit: 50, Window: time.Minute},
			},
		},
		Mail: &MailConfig{FrontendURL: "http://localhost:3000/"},
	}

	applyDefaults(cfg)

	assert.Equal(t, defaultMaxRequestBodySize, cfg.HTTP.MaxRequestBodySize)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "7d", cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.EmailVerificationTTL)
	assert.Equal(t, time.Hour, cfg.Auth.PasswordResetTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RevokedRetention)
	assert.Equal(t, 8, cfg.PasswordStrength.MinLength)
	assert.Equal(t, "Eventos", cfg.Mail.BrandName)
	assert.Equal(t, "http://localhost:3000", cfg.Mail.FrontendURL)
	assert.Equal(t, "admin", cfg.Admin.Nick)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// explicit policy kept, missing ones filled in
	assert.Equal(t, 50, cfg.RateLimit.Policies[RateLimitLogin].Limit)
	assert.Equal(t, 3, cfg.RateLimit.Policies[RateLimitForgotPassword].Limit)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.Policies[RateLimitResendVerification].Window)
}

func TestLoadWithEnv_OverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	content := []byte("secretKey:\n  access: yaml-secret\nauth:\n  accessTokenTTL: 5m\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unit.yaml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, dir)
	require.NoError(t, err)

	t.Setenv("SECRETKEY_ACCESS", "env-secret")

	cfg, err := LoadWithEnv[Config]("unit", rel)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.SecretKey.Access)
	require.NotNil(t, cfg.Auth)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
}

func TestLoadWithEnv_MissingFile(t *testing.T) {
	_, err := LoadWithEnv[Config]("does-not-exist")
	assert.Error(t, err)
}
