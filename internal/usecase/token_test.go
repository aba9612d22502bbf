package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdrz22/enginner/internal/core/domain"
)

func TestIssueIsGetOrCreate(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice@example.com", "pw-123456", nil)
	svc := NewTokenService(f.store.Tokens(), f.store.Users(), f.keys)

	first, err := svc.Issue(context.Background(), user)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), user)
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
}

func TestIssueConcurrentLoginsShareOneToken(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "alice@example.com", "pw-123456", nil)
	svc := NewTokenService(f.store.Tokens(), f.store.Users(), f.keys)

	const logins = 20
	keys := make(chan string, logins)
	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := svc.Issue(context.Background(), user)
			if err != nil {
				t.Errorf("Issue: %v", err)
				return
			}
			keys <- token.Key
		}()
	}
	wg.Wait()
	close(keys)

	distinct := map[string]struct{}{}
	for key := range keys {
		distinct[key] = struct{}{}
	}
	assert.Len(t, distinct, 1)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.seedUser(t, "admin@example.com", "pw-123456", func(u *domain.User) { u.IsStaff = true })
	svc := NewTokenService(f.store.Tokens(), f.store.Users(), f.keys)

	token, err := svc.Issue(ctx, admin)
	require.NoError(t, err)

	identity, err := svc.Resolve(ctx, token.Key)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, identity.UserID)
	assert.Equal(t, domain.RoleStaff, identity.Role)

	_, err = svc.Resolve(ctx, "not-a-key")
	assert.ErrorIs(t, err, ErrNoSuchToken)
	_, err = svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNoSuchToken)
}

func TestResolveRejectsInactiveOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.seedUser(t, "alice@example.com", "pw-123456", nil)
	svc := NewTokenService(f.store.Tokens(), f.store.Users(), f.keys)

	token, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().SetActive(ctx, user.ID, false, user.DateJoined))

	_, err = svc.Resolve(ctx, token.Key)
	assert.ErrorIs(t, err, ErrNoSuchToken)
}

func TestRevokeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.seedUser(t, "alice@example.com", "pw-123456", nil)
	svc := NewTokenService(f.store.Tokens(), f.store.Users(), f.keys)

	token, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, user.ID))
	require.NoError(t, svc.Revoke(ctx, user.ID))

	_, err = svc.Resolve(ctx, token.Key)
	assert.ErrorIs(t, err, ErrNoSuchToken)

	fresh, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, token.Key, fresh.Key)
}
