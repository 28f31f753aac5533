package repo

import (
	"context"

	"github.com/airo-bot/airo/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	GetByName(ctx context.Context, guildID int64, name string) (model.Task, error)
	List(ctx context.Context, guildID int64, filter model.TaskFilter) ([]model.Task, error)
	SetAssignees(ctx context.Context, taskID int64, userIDs []int64) error
	Archive(ctx context.Context, taskID int64) error
	Delete(ctx context.Context, taskID int64) error
	DeleteArchived(ctx context.Context, guildID int64, names []string) ([]model.ArchivedTask, error)
	ListArchivedNames(ctx context.Context, guildID int64) ([]string, error)
	RecordCheckin(ctx context.Context, c model.Checkin) (model.Checkin, error)
	CheckinChannel(ctx context.Context, guildID int64) (int64, error)
	SetCheckinChannel(ctx context.Context, guildID, channelID int64) error
	GetStats(ctx context.Context) (Stats, error)
}

// ReminderRepository определяет интерфейс для отложенных напоминаний
type ReminderRepository interface {
	Create(ctx context.Context, r model.Reminder) (model.Reminder, error)
}
