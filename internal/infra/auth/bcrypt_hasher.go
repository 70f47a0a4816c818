package auth

import (
	"strings"
	"unicode"

	"eventos/config"
	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/domain/service"

	"golang.org/x/crypto/bcrypt"
)

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost   int
	policy config.PasswordStrengthConfig
}

// NewBcryptHasher is the constructor for bcryptHasher.
// Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	if cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
		cost = cfg.Auth.BcryptCost
	}

	policy := config.PasswordStrengthConfig{MinLength: 8, RequireUppercase: true, RequireLowercase: true, RequireNumbers: true}
	if cfg.PasswordStrength != nil {
		policy = *cfg.PasswordStrength
	}

	return &bcryptHasher{cost: cost, policy: policy}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
func (h *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash in constant time.
func (h *bcryptHasher) Check(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength returns ErrValidationFailed listing every unmet rule.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	var problems []string

	length := len([]rune(password))
	if h.policy.MinLength > 0 && length < h.policy.MinLength {
		problems = append(problems, "too short")
	}
	// bcrypt ignores everything past 72 bytes.
	if (h.policy.MaxLength > 0 && length > h.policy.MaxLength) || len(password) > 72 {
		problems = append(problems, "too long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if h.policy.RequireUppercase && !hasUpper {
		problems = append(problems, "needs an uppercase letter")
	}
	if h.policy.RequireLowercase && !hasLower {
		problems = append(problems, "needs a lowercase letter")
	}
	if h.policy.RequireNumbers && !hasDigit {
		problems = append(problems, "needs a digit")
	}
	if h.policy.RequireSpecial && !hasSpecial {
		problems = append(problems, "needs a special character")
	}

	if len(problems) > 0 {
		return domainerrors.ErrValidationFailed.WithDetails("password " + strings.Join(problems, ", "))
	}

	return nil
}
