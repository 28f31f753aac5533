package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/airo-bot/airo/internal/model"
	"github.com/airo-bot/airo/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")

	// ErrNoCheckinChannel - в гильдии ещё не настроен канал для чекинов.
	ErrNoCheckinChannel = errors.New("no check-in channel configured")
)

// DefaultDueIntervalHours - период напоминаний по умолчанию.
const DefaultDueIntervalHours = 26

type TaskService struct {
	repo      repo.TaskRepository
	reminders repo.ReminderRepository
}

func NewTaskService(repo repo.TaskRepository, reminders repo.ReminderRepository) *TaskService {
	return &TaskService{repo: repo, reminders: reminders}
}

// CreateTask создает задачу с исполнителями. Требует настроенного канала
// чекинов; имя задачи уникально в пределах гильдии (repo.ErrorConflict).
func (s *TaskService) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	if t.DueIntervalHours == 0 {
		t.DueIntervalHours = DefaultDueIntervalHours
	}
	if err := s.validate(t); err != nil {
		return t, err
	}

	if _, err := s.repo.CheckinChannel(ctx, t.GuildID); err != nil {
		if errors.Is(err, repo.ErrorNotFound) {
			return t, ErrNoCheckinChannel
		}
		return t, err
	}

	return s.repo.Create(ctx, t)
}

// CompleteTask завершает задачу по имени: переносит её в архив либо, при
// deleteTask, удаляет безвозвратно. Возвращает задачу, чтобы вызывающий
// мог закрыть или удалить тред.
func (s *TaskService) CompleteTask(ctx context.Context, guildID int64, name string, deleteTask bool) (model.Task, error) {
	t, err := s.repo.GetByName(ctx, guildID, name)
	if err != nil {
		return t, err
	}

	if deleteTask {
		return t, s.repo.Delete(ctx, t.ID)
	}
	return t, s.repo.Archive(ctx, t.ID)
}

// UpdateAssignees заменяет состав исполнителей задачи.
func (s *TaskService) UpdateAssignees(ctx context.Context, guildID int64, name string, userIDs []int64) (model.Task, error) {
	t, err := s.repo.GetByName(ctx, guildID, name)
	if err != nil {
		return t, err
	}
	if err := s.repo.SetAssignees(ctx, t.ID, userIDs); err != nil {
		return t, err
	}
	t.Assignees = userIDs
	return t, nil
}

func (s *TaskService) ListTasks(ctx context.Context, guildID int64, filter model.TaskFilter) ([]model.Task, error) {
	return s.repo.List(ctx, guildID, filter)
}

// CheckinReceipt - результат записанного чекина плюс канал, куда его
// нужно переслать.
type CheckinReceipt struct {
	Task           model.Task
	Checkin        model.Checkin
	ForwardChannel int64
}

// RecordCheckin сохраняет отчёт исполнителя и возвращает данные для
// пересылки в канал чекинов гильдии.
func (s *TaskService) RecordCheckin(ctx context.Context, taskID, userID int64, status model.CheckinStatus) (CheckinReceipt, error) {
	var receipt CheckinReceipt

	if !status.Valid() {
		return receipt, ErrValidation
	}

	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return receipt, err
	}

	c, err := s.repo.RecordCheckin(ctx, model.Checkin{
		TaskID:  taskID,
		UserID:  userID,
		Status:  status,
		Content: status.Report(),
	})
	if err != nil {
		return receipt, err
	}

	receipt.Task = t
	receipt.Checkin = c

	// Канал мог быть сброшен после создания задачи - тогда чекин просто
	// не пересылается.
	if channelID, err := s.repo.CheckinChannel(ctx, t.GuildID); err == nil {
		receipt.ForwardChannel = channelID
	}
	return receipt, nil
}

func (s *TaskService) SetCheckinChannel(ctx context.Context, guildID, channelID int64) error {
	return s.repo.SetCheckinChannel(ctx, guildID, channelID)
}

func (s *TaskService) CheckinChannel(ctx context.Context, guildID int64) (int64, error) {
	return s.repo.CheckinChannel(ctx, guildID)
}

// DeleteArchived удаляет архивные записи по именам; пустой список означает
// весь архив гильдии. Возвращает удалённые записи с идентификаторами тредов.
func (s *TaskService) DeleteArchived(ctx context.Context, guildID int64, names []string) ([]model.ArchivedTask, error) {
	return s.repo.DeleteArchived(ctx, guildID, names)
}

func (s *TaskService) ListArchivedNames(ctx context.Context, guildID int64) ([]string, error) {
	return s.repo.ListArchivedNames(ctx, guildID)
}

// ScheduleReminder планирует разовое напоминание через интервал, заданный
// строкой вида "1w2d3h4m5s".
func (s *TaskService) ScheduleReminder(ctx context.Context, rem model.Reminder, in string) (model.Reminder, error) {
	d, err := ParseDuration(in)
	if err != nil {
		return rem, err
	}
	rem.SendAt = time.Now().UTC().Add(d)
	return s.reminders.Create(ctx, rem)
}

func (s *TaskService) GetStats(ctx context.Context) (repo.Stats, error) {
	return s.repo.GetStats(ctx)
}

func (s *TaskService) validate(t model.Task) error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrValidation
	}
	if t.DueIntervalHours < 1 || t.DueIntervalHours > 336 {
		return ErrValidation
	}
	return nil
}
