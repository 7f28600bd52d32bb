package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newTask(title string, due time.Time) *domain.Task {
	return &domain.Task{
		Title:         title,
		ScheduledDate: due,
		Priority:      domain.PriorityMedium,
		Category:      domain.CategoryPersonal,
	}
}

var now = time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)

func TestSQLiteRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	task := newTask("write report", now.Add(time.Hour))
	task.Priority = domain.PriorityHigh
	task.Category = domain.CategoryWork
	require.NoError(t, repo.CreateTask(ctx, task))
	assert.NotZero(t, task.ID)
	assert.False(t, task.CreatedAt.IsZero())

	got, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, *task, *got)
}

func TestSQLiteRepo_ListSortedByScheduledDate(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	for _, tc := range []struct {
		title string
		in    time.Duration
	}{
		{"later", 3 * time.Hour},
		{"soon", time.Hour},
		{"middle", 2 * time.Hour},
	} {
		require.NoError(t, repo.CreateTask(ctx, newTask(tc.title, now.Add(tc.in))))
	}

	tasks, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"soon", "middle", "later"},
		[]string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
}

func TestSQLiteRepo_ListEmpty(t *testing.T) {
	tasks, err := openTestRepo(t).ListTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestSQLiteRepo_UpdateTask(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	task := newTask("call mom", now.Add(time.Hour))
	require.NoError(t, repo.CreateTask(ctx, task))

	done := true
	title := "call mum"
	got, err := repo.UpdateTask(ctx, task.ID, domain.TaskPatch{Completed: &done, Title: &title})
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "call mum", got.Title)
	assert.Equal(t, task.ScheduledDate, got.ScheduledDate)

	stored, err := repo.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, *got, *stored)
}

func TestSQLiteRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.GetTask(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.UpdateTask(ctx, 404, domain.TaskPatch{})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.DeleteTask(ctx, 404), ErrNotFound)
}

func TestSQLiteRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	task := newTask("gym", now.Add(time.Hour))
	require.NoError(t, repo.CreateTask(ctx, task))
	require.NoError(t, repo.DeleteTask(ctx, task.ID))

	_, err := repo.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepo_Settings(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.GetSetting(ctx, SettingNotificationPermission)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SetSetting(ctx, SettingNotificationPermission, "default"))
	require.NoError(t, repo.SetSetting(ctx, SettingNotificationPermission, "granted"))

	v, err := repo.GetSetting(ctx, SettingNotificationPermission)
	require.NoError(t, err)
	assert.Equal(t, "granted", v)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := openTestRepo(t)
	require.NoError(t, RunMigrations(context.Background(), repo.db))
}
