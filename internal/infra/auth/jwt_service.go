// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"eventos/config"
	"eventos/internal/domain/entity"
	"eventos/internal/domain/service"
	"eventos/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jtiBytes = 32

// ErrInvalidToken is returned when a token fails signature, expiry or type checks.
var ErrInvalidToken = errors.New("invalid token")

// accessTokenClaims is the signed payload of an access token.
type accessTokenClaims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"tokenVersion"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

// refreshTokenClaims is the signed payload of a refresh token.
// The jti travels in RegisteredClaims.ID.
type refreshTokenClaims struct {
	TokenVersion int    `json:"tokenVersion"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  []byte        // Secret key for signing access tokens.
	refreshSecret []byte        // Secret key for signing refresh tokens.
	accessTTL     time.Duration // Time-to-live for access tokens.
	refreshTTL    time.Duration // Time-to-live for refresh tokens.
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService.
// The refresh secret falls back to the access secret when unset.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" {
		return nil, errors.New("jwt access secret must be provided")
	}

	accessTTL := 15 * time.Minute
	refreshTTL := DefaultRefreshTokenTTL
	if cfg.Auth != nil {
		if cfg.Auth.AccessTokenTTL > 0 {
			accessTTL = cfg.Auth.AccessTokenTTL
		}
		refreshTTL = ParseTTL(cfg.Auth.RefreshTokenTTL)
	}

	return &jwtService{
		accessSecret:  []byte(cfg.SecretKey.Access),
		refreshSecret: []byte(cfg.SecretKey.RefreshSecret()),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// IssueAccessToken signs a short-lived token carrying the identity the guards need.
func (s *jwtService) IssueAccessToken(user *entity.User) (string, error) {
	now := s.now()
	claims := accessTokenClaims{
		Email:        user.Email,
		Role:         user.Role.String(),
		TokenVersion: user.TokenVersion,
		Type:         service.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}

	return signed, nil
}

// IssueRefreshToken signs a long-lived token with a random jti so two tokens
// issued in the same second still hash differently.
func (s *jwtService) IssueRefreshToken(user *entity.User) (*service.IssuedRefreshToken, error) {
	jti, err := randomHex(jtiBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate jti")
	}

	now := s.now()
	expiresAt := now.Add(s.refreshTTL)
	claims := refreshTokenClaims{
		TokenVersion: user.TokenVersion,
		Type:         service.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign refresh token")
	}

	return &service.IssuedRefreshToken{
		Token:     signed,
		Hash:      s.HashToken(signed),
		ExpiresAt: expiresAt.Truncate(time.Second),
	}, nil
}

// VerifyAccessToken checks signature, expiry and token type.
func (s *jwtService) VerifyAccessToken(token string) (*service.AccessClaims, error) {
	claims := &accessTokenClaims{}
	if err := s.parse(token, claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.Type != "" && claims.Type != service.TokenTypeAccess {
		return nil, errors.Wrap(ErrInvalidToken, "unexpected token type")
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, "invalid subject")
	}

	return &service.AccessClaims{
		Subject:      subject,
		Email:        claims.Email,
		Role:         entity.Role(claims.Role),
		TokenVersion: claims.TokenVersion,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// VerifyRefreshToken checks signature, expiry and that type is "refresh".
func (s *jwtService) VerifyRefreshToken(token string) (*service.RefreshClaims, error) {
	claims := &refreshTokenClaims{}
	if err := s.parse(token, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != service.TokenTypeRefresh {
		return nil, errors.Wrap(ErrInvalidToken, "not a refresh token")
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, "invalid subject")
	}

	return &service.RefreshClaims{
		Subject:      subject,
		TokenVersion: claims.TokenVersion,
		JTI:          claims.ID,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// HashToken returns the hex SHA-256 of the raw token.
func (s *jwtService) HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

func (s *jwtService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

func (s *jwtService) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return errors.Wrap(ErrInvalidToken, "token verification failed")
	}

	return nil
}

// randomHex returns n random bytes, hex encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.WithStack(err)
	}

	return hex.EncodeToString(buf), nil
}
