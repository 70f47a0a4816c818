package auth

import (
	"testing"
	"time"

	"eventos/config"
	"eventos/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenConfig(refreshSecret string) *config.Config {
	return &config.Config{
		SecretKey: config.SecretKey{
			Access:  "test_access_secret_key_very_long_for_testing",
			Refresh: refreshSecret,
		},
		Auth: &config.AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: "7d",
		},
	}
}

func newTestTokenUser() *entity.User {
	return &entity.User{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		Nick:         "alice",
		Role:         entity.RoleUser,
		TokenVersion: 3,
	}
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc, err := NewJWTService(newTestTokenConfig("test_refresh_secret_key_very_long_for_testing"))
	require.NoError(t, err)
	user := newTestTokenUser()

	token, err := svc.IssueAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, entity.RoleUser, claims.Role)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 2*time.Second)
}

func TestJWTService_RefreshTokenRoundTrip(t *testing.T) {
	svc, err := NewJWTService(newTestTokenConfig("test_refresh_secret_key_very_long_for_testing"))
	require.NoError(t, err)
	user := newTestTokenUser()

	issued, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	assert.Equal(t, svc.HashToken(issued.Token), issued.Hash)
	assert.Len(t, issued.Hash, 64)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), issued.ExpiresAt, 2*time.Second)

	claims, err := svc.VerifyRefreshToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Len(t, claims.JTI, 64)
}

func TestJWTService_RefreshTokensAreUnique(t *testing.T) {
	svc, err := NewJWTService(newTestTokenConfig(""))
	require.NoError(t, err)
	user := newTestTokenUser()

	first, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)
	second, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.NotEqual(t, first.Hash, second.Hash)
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	// Same secret for both so only the type claim tells them apart.
	svc, err := NewJWTService(newTestTokenConfig(""))
	require.NoError(t, err)
	user := newTestTokenUser()

	access, err := svc.IssueAccessToken(user)
	require.NoError(t, err)
	refresh, err := svc.IssueRefreshToken(user)
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(access)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = svc.VerifyAccessToken(refresh.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestJWTService_DistinctSecrets(t *testing.T) {
	svc, err := NewJWTService(newTestTokenConfig("test_refresh_secret_key_very_long_for_testing"))
	require.NoError(t, err)

	other, err := NewJWTService(newTestTokenConfig("some_other_refresh_secret"))
	require.NoError(t, err)

	issued, err := other.IssueRefreshToken(newTestTokenUser())
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(issued.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc, err := NewJWTService(newTestTokenConfig(""))
	require.NoError(t, err)
	js, ok := svc.(*jwtService)
	require.True(t, ok)

	js.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := svc.IssueAccessToken(newTestTokenUser())
	require.NoError(t, err)

	js.now = time.Now
	_, err = svc.VerifyAccessToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestJWTService_RejectsNonHMAC(t *testing.T) {
	svc, err := NewJWTService(newTestTokenConfig(""))
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "refresh",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifyRefreshToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = svc.VerifyRefreshToken("not-a-jwt")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestNewJWTService_RequiresAccessSecret(t *testing.T) {
	_, err := NewJWTService(&config.Config{})
	assert.Error(t, err)
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "30s", want: 30 * time.Second},
		{in: "15m", want: 15 * time.Minute},
		{in: "24h", want: 24 * time.Hour},
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: " 2d ", want: 48 * time.Hour},
		{in: "", want: DefaultRefreshTokenTTL},
		{in: "7w", want: DefaultRefreshTokenTTL},
		{in: "0d", want: DefaultRefreshTokenTTL},
		{in: "1h30m", want: DefaultRefreshTokenTTL},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTTL(tt.in))
		})
	}
}

func TestRandomTokenGenerator(t *testing.T) {
	gen := NewRandomTokenGenerator()

	a, err := gen.Generate()
	require.NoError(t, err)
	b, err := gen.Generate()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
