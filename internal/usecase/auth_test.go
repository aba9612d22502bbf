package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
)

func newAuthService(t *testing.T, f *fixture) (*AuthService, *telemetry.Metrics) {
	t.Helper()
	metrics, err := telemetry.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	svc, err := NewAuthService(f.store.Users(), f.hasher, f.keys, metrics, zaptest.NewLogger(t))
	require.NoError(t, err)
	return svc, metrics
}

func TestAuthenticateSucceedsCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedUser(t, "alice@example.com", "s3cret-pass", nil)
	svc, _ := newAuthService(t, f)

	user, err := svc.Authenticate(context.Background(), "  Alice@Example.COM ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestAuthenticateFailuresShareOneOutcome(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice@example.com", "s3cret-pass", nil)
	f.seedUser(t, "frozen@example.com", "s3cret-pass", func(u *domain.User) { u.IsActive = false })
	svc, metrics := newAuthService(t, f)

	cases := []struct {
		name     string
		email    string
		password string
		reason   AuthFailureReason
	}{
		{"missing", "", "whatever", AuthFailureMissingCredentials},
		{"unknown", "ghost@example.com", "s3cret-pass", AuthFailureNoSuchUser},
		{"bad password", "alice@example.com", "wrong-pass", AuthFailureBadPassword},
		{"inactive", "frozen@example.com", "s3cret-pass", AuthFailureInactive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.email, tc.password)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())

			var failure *AuthFailure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tc.reason, failure.Reason)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthFailures.WithLabelValues(string(tc.reason))))
		})
	}
}

func TestAuthenticateUnknownEmailStillVerifiesAHash(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)

	before := f.hasher.Verifies()
	_, err := svc.Authenticate(context.Background(), "ghost@example.com", "anything")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, before+1, f.hasher.Verifies())
}

func TestAuthenticateMissingCredentialsSkipsLookup(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)

	before := f.hasher.Verifies()
	_, err := svc.Authenticate(context.Background(), "alice@example.com", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, before, f.hasher.Verifies())
}
