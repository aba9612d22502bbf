package security

import (
	"errors"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
)

const (
	defaultMinPasswordLength = 8
	defaultMinZxcvbnScore    = 2
)

// DefaultPasswordValidator returns the validator used when no user context is known.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidatorWithContext()
}

// NewPasswordValidatorWithContext penalises passwords that resemble the given user inputs.
func NewPasswordValidatorWithContext(userInputs ...string) *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RejectNumericRule(),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore, userInputs...),
	)
}

// PasswordPolicy adapts the password validator to the registration flow.
type PasswordPolicy struct {
	fallback *PasswordValidator
	factory  func(inputs []string) *PasswordValidator
}

// NewPasswordPolicy builds a policy that accounts for the user's email and username.
// Passwords checked without any user context share one default validator.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		fallback: DefaultPasswordValidator(),
		factory: func(inputs []string) *PasswordValidator {
			return NewPasswordValidatorWithContext(inputs...)
		},
	}
}

// Validate applies the configured validator to ensure the password meets policy requirements.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	if p == nil || p.factory == nil {
		return errors.New("password policy not configured")
	}

	inputs := make([]string, 0, 2)
	if ctx.Username != "" {
		inputs = append(inputs, ctx.Username)
	}
	if ctx.Email != "" {
		inputs = append(inputs, ctx.Email)
	}

	if len(inputs) == 0 && p.fallback != nil {
		return p.fallback.Validate(password)
	}
	return p.factory(inputs).Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
