package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/security"
	"github.com/mhmdrz22/enginner/internal/repository/memory"
)

// countingHasher wraps a fast argon2 configuration and counts Verify calls.
type countingHasher struct {
	inner *security.Argon2Hasher

	mu       sync.Mutex
	verifies int
}

func newCountingHasher(t *testing.T) *countingHasher {
	t.Helper()
	cfg := security.DefaultArgon2Config()
	cfg.Memory = 8 * 1024
	cfg.Iterations = 1
	cfg.Parallelism = 1
	inner, err := security.NewArgon2Hasher(cfg)
	if err != nil {
		t.Fatalf("NewArgon2Hasher: %v", err)
	}
	return &countingHasher{inner: inner}
}

func (h *countingHasher) Hash(password string) (string, error) { return h.inner.Hash(password) }

func (h *countingHasher) Verify(password, encoded string) (bool, error) {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.inner.Verify(password, encoded)
}

func (h *countingHasher) Verifies() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifies
}

type sequenceKeys struct {
	mu   sync.Mutex
	next int
}

func (k *sequenceKeys) NewKey() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.next++
	return fmt.Sprintf("key-%04d", k.next), nil
}

// scriptedMailer fails recipients listed in failures with the mapped error.
type scriptedMailer struct {
	mu       sync.Mutex
	failures map[string]error
	sent     []string
	calls    []string
}

func (m *scriptedMailer) Send(_ context.Context, email domain.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, email.To)
	if err, ok := m.failures[email.To]; ok {
		return err
	}
	m.sent = append(m.sent, email.To)
	return nil
}

type recordingQueue struct {
	jobs []domain.NotificationJob
	err  error
}

func (q *recordingQueue) Submit(_ context.Context, job domain.NotificationJob) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, job)
	return job.JobID, nil
}

type recordingDeadLetters struct {
	jobs   []domain.NotificationJob
	causes []error
	err    error
}

func (d *recordingDeadLetters) DeadLetter(_ context.Context, job domain.NotificationJob, cause error) error {
	d.jobs = append(d.jobs, job)
	d.causes = append(d.causes, cause)
	return d.err
}

var errRecipientRejected = errors.New("550 mailbox unavailable")

type fixture struct {
	store  *memory.Store
	hasher *countingHasher
	keys   *sequenceKeys
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{store: memory.NewStore(), hasher: newCountingHasher(t), keys: &sequenceKeys{}}
}

func (f *fixture) seedUser(t *testing.T, email, password string, mutate func(*domain.User)) domain.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     email,
		PasswordHash: hash,
		IsActive:     true,
		DateJoined:   time.Now(),
	}
	if mutate != nil {
		mutate(&user)
	}
	if err := f.store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

var (
	_ port.PasswordHasher = (*countingHasher)(nil)
	_ port.KeyGenerator   = (*sequenceKeys)(nil)
	_ port.Mailer         = (*scriptedMailer)(nil)
	_ port.JobQueue       = (*recordingQueue)(nil)
	_ port.DeadLetterSink = (*recordingDeadLetters)(nil)
)
