// Package validator plugs go-playground/validator into echo.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	domainerrors "eventos/internal/domain/errors"
	"eventos/internal/errors"

	"github.com/go-playground/validator/v10"
)

var nickPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// CustomValidator implements echo.Validator.
type CustomValidator struct {
	validate *validator.Validate
}

// New registers the "nick" and "password" tags on top of the built-in ones.
func New() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("nick", validateNick)
	_ = v.RegisterValidation("password", validatePassword)

	return &CustomValidator{validate: v}
}

// Validate returns ErrValidationFailed with one detail line per failed field.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}

	return domainerrors.ErrValidationFailed.WithDetails(strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "nick":
		return field + " may only contain letters, digits, '_' and '-'"
	case "password":
		return field + " must contain an uppercase letter, a lowercase letter and a digit"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func validateNick(fl validator.FieldLevel) bool {
	return nickPattern.MatchString(fl.Field().String())
}

// validatePassword checks character classes only; length is left to min/max.
func validatePassword(fl validator.FieldLevel) bool {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	return hasUpper && hasLower && hasDigit
}
