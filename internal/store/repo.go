package store

import (
	"context"
	"errors"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
)

// ErrNotFound is returned when a task or setting does not exist.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for tasks and key/value settings.
type Repo interface {
	CreateTask(ctx context.Context, t *domain.Task) error
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	UpdateTask(ctx context.Context, id int64, p domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}

// Setting keys.
const (
	SettingNotificationPermission = "notification_permission"
	SettingTelegramChatID         = "telegram_chat_id"
)
