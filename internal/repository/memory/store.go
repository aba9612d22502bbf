// Package memory provides mutex-guarded repositories for development and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/repository"
)

// Store holds users, tokens and tasks behind a single lock so cascades are atomic.
type Store struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	users  map[string]domain.User
	tokens map[string]domain.AuthToken // keyed by user id
	tasks  map[string]domain.Task
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		tokens: make(map[string]domain.AuthToken),
		tasks:  make(map[string]domain.Task),
	}
}

// Users exposes the store as a port.UserRepository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Tokens exposes the store as a port.TokenRepository.
func (s *Store) Tokens() *TokenRepository { return &TokenRepository{s: s} }

// Tasks exposes the store as a port.TaskRepository.
func (s *Store) Tasks() *TaskRepository { return &TaskRepository{s: s} }

// Overview exposes the store as a port.OverviewRepository.
func (s *Store) Overview() *OverviewRepository { return &OverviewRepository{s: s} }

// Accounts exposes the store as a port.AccountTransactor.
func (s *Store) Accounts() *AccountTransactor { return &AccountTransactor{s: s} }

// AccountTransactor restores the user and token maps when fn fails. Transactions are
// serialized with each other but not isolated from writes made outside them.
type AccountTransactor struct{ s *Store }

func (t *AccountTransactor) WithinTx(_ context.Context, fn func(users port.UserRepository, tokens port.TokenRepository) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.RLock()
	users, tokens := maps.Clone(t.s.users), maps.Clone(t.s.tokens)
	t.s.mu.RUnlock()

	if err := fn(t.s.Users(), t.s.Tokens()); err != nil {
		t.s.mu.Lock()
		t.s.users, t.s.tokens = users, tokens
		t.s.mu.Unlock()
		return err
	}
	return nil
}

// UserRepository is the user view of a Store.
type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return repository.ErrConflict
	}
	if r.s.emailTakenLocked(user.Email, "") {
		return repository.ErrConflict
	}
	r.s.users[user.ID] = user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.emailTakenLocked(email, excludeID), nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, id, email, username string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.s.emailTakenLocked(email, id) {
		return repository.ErrConflict
	}
	user.Email = email
	user.Username = username
	user.UpdatedAt = updatedAt
	r.s.users[id] = user
	return nil
}

func (r *UserRepository) SetActive(_ context.Context, id string, active bool, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	user.UpdatedAt = updatedAt
	r.s.users[id] = user
	return nil
}

// Delete removes the user, its token and its tasks under one lock.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for taskID, task := range r.s.tasks {
		if task.OwnedBy(id) {
			delete(r.s.tasks, taskID)
		}
	}
	delete(r.s.tokens, id)
	delete(r.s.users, id)
	return nil
}

func (s *Store) emailTakenLocked(email, excludeID string) bool {
	for id, user := range s.users {
		if id != excludeID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}

// TokenRepository is the token view of a Store.
type TokenRepository struct{ s *Store }

func (r *TokenRepository) GetOrCreate(_ context.Context, userID, candidateKey string, at time.Time) (domain.AuthToken, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if token, ok := r.s.tokens[userID]; ok {
		return token, false, nil
	}
	if _, ok := r.s.users[userID]; !ok {
		return domain.AuthToken{}, false, repository.ErrNotFound
	}
	token := domain.AuthToken{Key: candidateKey, UserID: userID, CreatedAt: at}
	r.s.tokens[userID] = token
	return token, true, nil
}

func (r *TokenRepository) GetByKey(_ context.Context, key string) (*domain.AuthToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, token := range r.s.tokens {
		if token.Key == key {
			found := token
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *TokenRepository) DeleteByUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, userID)
	return nil
}

// TaskRepository is the task view of a Store.
type TaskRepository struct{ s *Store }

func (r *TaskRepository) Create(_ context.Context, task domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[task.ID]; ok {
		return repository.ErrConflict
	}
	r.s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *TaskRepository) Get(_ context.Context, ownerID, id string) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	task, ok := r.s.tasks[id]
	if !ok || !task.OwnedBy(ownerID) {
		return nil, repository.ErrNotFound
	}
	found := cloneTask(task)
	return &found, nil
}

func (r *TaskRepository) List(_ context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	tasks := make([]domain.Task, 0)
	for _, task := range r.s.tasks {
		if !task.OwnedBy(ownerID) {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && task.Priority != *filter.Priority {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) {
			continue
		}
		tasks = append(tasks, cloneTask(task))
	}

	sortTasks(tasks, filter.Ordering)
	return tasks, nil
}

func (r *TaskRepository) Update(_ context.Context, ownerID string, task domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[task.ID]
	if !ok || !existing.OwnedBy(ownerID) {
		return repository.ErrNotFound
	}
	task.UserID = existing.UserID
	task.CreatedAt = existing.CreatedAt
	r.s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	task, ok := r.s.tasks[id]
	if !ok || !task.OwnedBy(ownerID) {
		return repository.ErrNotFound
	}
	delete(r.s.tasks, id)
	return nil
}

// OverviewRepository is the admin statistics view of a Store.
type OverviewRepository struct{ s *Store }

func (r *OverviewRepository) Overview(_ context.Context) (domain.Overview, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	index := make(map[string]int, len(r.s.users))
	overview := domain.Overview{Users: make([]domain.UserTaskStats, 0, len(r.s.users))}

	users := make([]domain.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].DateJoined.Equal(users[j].DateJoined) {
			return users[i].ID < users[j].ID
		}
		return users[i].DateJoined.Before(users[j].DateJoined)
	})

	for _, user := range users {
		index[user.ID] = len(overview.Users)
		overview.Users = append(overview.Users, domain.UserTaskStats{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			IsActive: user.IsActive,
		})
		overview.TotalUsers++
		if user.IsActive {
			overview.ActiveUsers++
		}
	}

	for _, task := range r.s.tasks {
		if task.UserID == nil {
			continue
		}
		i, ok := index[*task.UserID]
		if !ok {
			continue
		}
		overview.Users[i].TotalTasks++
		if task.Status.IsOpen() {
			overview.Users[i].OpenTasks++
		}
	}

	return overview, nil
}

func sortTasks(tasks []domain.Task, ordering domain.TaskOrdering) {
	if ordering.Field == "" {
		ordering = domain.DefaultTaskOrdering
	}

	less := func(a, b domain.Task) int {
		switch ordering.Field {
		case domain.TaskOrderPriority:
			return a.Priority.Rank() - b.Priority.Rank()
		case domain.TaskOrderDueDate:
			return compareDueDates(a.DueDate, b.DueDate)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		c := less(tasks[i], tasks[j])
		if ordering.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// compareDueDates sorts missing due dates after present ones, as PostgreSQL does for ASC.
func compareDueDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func cloneTask(task domain.Task) domain.Task {
	if task.UserID != nil {
		owner := *task.UserID
		task.UserID = &owner
	}
	if task.DueDate != nil {
		due := *task.DueDate
		task.DueDate = &due
	}
	return task
}

var (
	_ port.UserRepository     = (*UserRepository)(nil)
	_ port.TokenRepository    = (*TokenRepository)(nil)
	_ port.TaskRepository     = (*TaskRepository)(nil)
	_ port.OverviewRepository = (*OverviewRepository)(nil)
)
