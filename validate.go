package authcore

import (
	"github.com/go-playground/validator/v10"
)

// Shared validator instance; validator.Validate caches struct metadata and
// is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	return validate.Var(email, "required,email") == nil
}

func (e *Engine) checkPasswordPolicy(plaintext string) error {
	if len(plaintext) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}
	return nil
}
