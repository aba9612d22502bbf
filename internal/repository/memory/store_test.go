package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/repository"
)

func seedUser(t *testing.T, store *Store, id, email string, joined time.Time) {
	t.Helper()
	err := store.Users().Create(context.Background(), domain.User{
		ID:         id,
		Email:      email,
		Username:   id,
		IsActive:   true,
		DateJoined: joined,
	})
	require.NoError(t, err)
}

func seedTask(t *testing.T, store *Store, id, owner string, status domain.TaskStatus, priority domain.TaskPriority, created time.Time) {
	t.Helper()
	err := store.Tasks().Create(context.Background(), domain.Task{
		ID:        id,
		UserID:    &owner,
		Title:     "task " + id,
		Status:    status,
		Priority:  priority,
		CreatedAt: created,
		UpdatedAt: created,
	})
	require.NoError(t, err)
}

func TestUsersRejectDuplicateEmailCaseInsensitively(t *testing.T) {
	store := NewStore()
	seedUser(t, store, "u1", "alice@example.com", time.Now())

	err := store.Users().Create(context.Background(), domain.User{ID: "u2", Email: "ALICE@example.com"})
	require.ErrorIs(t, err, repository.ErrConflict)

	taken, err := store.Users().EmailTaken(context.Background(), "Alice@Example.com", "u1")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestGetOrCreateReturnsOneTokenUnderConcurrency(t *testing.T) {
	store := NewStore()
	seedUser(t, store, "u1", "alice@example.com", time.Now())

	const workers = 16
	keys := make([]string, workers)
	created := make([]bool, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, isNew, err := store.Tokens().GetOrCreate(context.Background(), "u1", string(rune('a'+i)), time.Now())
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			keys[i] = token.Key
			created[i] = isNew
		}(i)
	}
	wg.Wait()

	newCount := 0
	for i := range keys {
		assert.Equal(t, keys[0], keys[i])
		if created[i] {
			newCount++
		}
	}
	assert.Equal(t, 1, newCount)
}

func TestDeleteUserCascadesToTokenAndTasks(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()
	seedUser(t, store, "u1", "alice@example.com", now)
	seedUser(t, store, "u2", "bob@example.com", now)
	seedTask(t, store, "t1", "u1", domain.TaskStatusTodo, domain.TaskPriorityLow, now)
	seedTask(t, store, "t2", "u2", domain.TaskStatusTodo, domain.TaskPriorityLow, now)

	token, _, err := store.Tokens().GetOrCreate(ctx, "u1", "key-1", now)
	require.NoError(t, err)

	require.NoError(t, store.Users().Delete(ctx, "u1"))

	_, err = store.Tokens().GetByKey(ctx, token.Key)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Tasks().Get(ctx, "u1", "t1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Tasks().Get(ctx, "u2", "t2")
	assert.NoError(t, err)
}

func TestTaskAccessIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()
	seedUser(t, store, "u1", "alice@example.com", now)
	seedTask(t, store, "t1", "u1", domain.TaskStatusTodo, domain.TaskPriorityLow, now)

	_, err := store.Tasks().Get(ctx, "u2", "t1")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.ErrorIs(t, store.Tasks().Delete(ctx, "u2", "t1"), repository.ErrNotFound)
	assert.ErrorIs(t, store.Tasks().Update(ctx, "u2", domain.Task{ID: "t1", Title: "stolen"}), repository.ErrNotFound)

	task, err := store.Tasks().Get(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "task t1", task.Title)
}

func TestListFiltersSearchAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, store, "u1", "alice@example.com", base)
	seedTask(t, store, "t1", "u1", domain.TaskStatusTodo, domain.TaskPriorityHigh, base)
	seedTask(t, store, "t2", "u1", domain.TaskStatusDone, domain.TaskPriorityLow, base.Add(time.Hour))
	seedTask(t, store, "t3", "u1", domain.TaskStatusTodo, domain.TaskPriorityMedium, base.Add(2*time.Hour))

	tasks, err := store.Tasks().List(ctx, "u1", domain.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t2", "t1"}, taskIDs(tasks))

	tasks, err = store.Tasks().List(ctx, "u1", domain.TaskFilter{Ordering: domain.TaskOrdering{Field: domain.TaskOrderPriority}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3", "t1"}, taskIDs(tasks))

	todo := domain.TaskStatusTodo
	tasks, err = store.Tasks().List(ctx, "u1", domain.TaskFilter{Status: &todo, Ordering: domain.TaskOrdering{Field: domain.TaskOrderPriority, Descending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, taskIDs(tasks))

	tasks, err = store.Tasks().List(ctx, "u1", domain.TaskFilter{Search: "TASK T2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, taskIDs(tasks))
}

func TestOverviewCountsOpenTasksPerUser(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, store, "u1", "alice@example.com", base)
	seedUser(t, store, "u2", "bob@example.com", base.Add(time.Hour))
	require.NoError(t, store.Users().SetActive(ctx, "u2", false, base))
	seedTask(t, store, "t1", "u1", domain.TaskStatusTodo, domain.TaskPriorityLow, base)
	seedTask(t, store, "t2", "u1", domain.TaskStatusDoing, domain.TaskPriorityLow, base)
	seedTask(t, store, "t3", "u1", domain.TaskStatusDone, domain.TaskPriorityLow, base)

	overview, err := store.Overview().Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, overview.TotalUsers)
	assert.Equal(t, 1, overview.ActiveUsers)
	require.Len(t, overview.Users, 2)
	assert.Equal(t, domain.UserTaskStats{ID: "u1", Email: "alice@example.com", Username: "u1", IsActive: true, TotalTasks: 3, OpenTasks: 2}, overview.Users[0])
	assert.Equal(t, 0, overview.Users[1].TotalTasks)
	assert.False(t, overview.Users[1].IsActive)
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.ID)
	}
	return ids
}

func TestAccountTransactorRestoresStateOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedUser(t, store, "u1", "u1@example.com", time.Now())
	_, _, err := store.Tokens().GetOrCreate(ctx, "u1", "key-1", time.Now())
	require.NoError(t, err)

	failure := errors.New("boom")
	err = store.Accounts().WithinTx(ctx, func(users port.UserRepository, tokens port.TokenRepository) error {
		require.NoError(t, users.SetActive(ctx, "u1", false, time.Now()))
		require.NoError(t, tokens.DeleteByUser(ctx, "u1"))
		return failure
	})
	require.ErrorIs(t, err, failure)

	user, err := store.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	token, err := store.Tokens().GetByKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", token.UserID)
}

func TestAccountTransactorKeepsCommittedWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	seedUser(t, store, "u1", "u1@example.com", time.Now())

	err := store.Accounts().WithinTx(ctx, func(users port.UserRepository, _ port.TokenRepository) error {
		return users.SetActive(ctx, "u1", false, time.Now())
	})
	require.NoError(t, err)

	user, err := store.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}
