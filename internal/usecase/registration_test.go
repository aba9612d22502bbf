package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdrz22/enginner/internal/infra/security"
)

const strongPassword = "Zebra-Harbor-Quartz-91"

func newRegistrationService(f *fixture) *RegistrationService {
	return NewRegistrationService(f.store.Users(), f.hasher, security.NewPasswordPolicy(), nil)
}

func TestRegisterCreatesActiveMember(t *testing.T) {
	f := newFixture(t)
	svc := newRegistrationService(f)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:           "  New@Example.com",
		Username:        "newbie",
		Password:        strongPassword,
		PasswordConfirm: strongPassword,
	})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff)
	assert.False(t, user.IsSuperuser)
	assert.Empty(t, user.PasswordHash)

	stored, err := f.store.Users().GetByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	ok, err := f.hasher.Verify(strongPassword, stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "taken@example.com", strongPassword, nil)
	svc := newRegistrationService(f)

	cases := []struct {
		name    string
		in      RegisterInput
		field   string
		message string
	}{
		{
			name:    "missing email",
			in:      RegisterInput{Username: "u", Password: strongPassword, PasswordConfirm: strongPassword},
			field:   "email",
			message: msgFieldRequired,
		},
		{
			name:    "duplicate email in other case",
			in:      RegisterInput{Email: "TAKEN@example.com", Username: "u", Password: strongPassword, PasswordConfirm: strongPassword},
			field:   "email",
			message: msgEmailTaken,
		},
		{
			name:    "mismatched confirmation",
			in:      RegisterInput{Email: "a@example.com", Username: "u", Password: strongPassword, PasswordConfirm: strongPassword + "x"},
			field:   "password_confirm",
			message: msgPasswordMismatch,
		},
		{
			name:  "numeric password",
			in:    RegisterInput{Email: "a@example.com", Username: "u", Password: "1234567890", PasswordConfirm: "1234567890"},
			field: "password",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
			if tc.message != "" {
				assert.Equal(t, tc.message, verr.Message)
			}
		})
	}
}
