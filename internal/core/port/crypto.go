package port

import "github.com/mhmdrz22/enginner/internal/core/domain"

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, ctx domain.PasswordContext) error
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// KeyGenerator produces opaque random token keys.
type KeyGenerator interface {
	NewKey() (string, error)
}
