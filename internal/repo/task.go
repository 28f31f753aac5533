package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airo-bot/airo/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

// Create вставляет задачу вместе с исполнителями в одной транзакции.
func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return t, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO tasks (guild_id, thread_id, name, captain_id, due_interval_hours, next_check_at, active)
		VALUES ($1, $2, $3, $4, $5, now() + make_interval(hours => $5), TRUE)
		RETURNING id, next_check_at, active, created_at
	`, t.GuildID, t.ThreadID, t.Name, t.CaptainID, t.DueIntervalHours).Scan(
		&t.ID, &t.NextCheckAt, &t.Active, &t.CreatedAt,
	)
	if err != nil {
		return t, r.mapError(err)
	}

	for _, uid := range t.Assignees {
		if _, err := tx.Exec(ctx, `
			INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, t.ID, uid); err != nil {
			return t, err
		}
	}

	return t, tx.Commit(ctx)
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	var t model.Task
	err := r.pool.QueryRow(ctx, `
		SELECT id, guild_id, thread_id, name, captain_id, due_interval_hours, next_check_at, active, created_at
		FROM tasks
		WHERE id = $1
	`, id).Scan(
		&t.ID, &t.GuildID, &t.ThreadID, &t.Name, &t.CaptainID, &t.DueIntervalHours, &t.NextCheckAt, &t.Active, &t.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return t, ErrorNotFound
	}
	if err != nil {
		return t, err
	}

	t.Assignees, err = r.assignees(ctx, t.ID)
	return t, err
}

func (r *TaskRepo) GetByName(ctx context.Context, guildID int64, name string) (model.Task, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM tasks WHERE guild_id = $1 AND name = $2
	`, guildID, name).Scan(&id)
	if err == pgx.ErrNoRows {
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, err
	}
	return r.Get(ctx, id)
}

// List возвращает активные либо архивные задачи гильдии. Фильтр по капитанам
// опционален. Исполнители подгружаются только для активных задач — в архиве
// они не хранятся.
func (r *TaskRepo) List(ctx context.Context, guildID int64, filter model.TaskFilter) ([]model.Task, error) {
	query := `
		SELECT id, guild_id, thread_id, name, captain_id, due_interval_hours
		FROM tasks
		WHERE guild_id = $1 AND active
	`
	if filter.Archived {
		query = `
		SELECT id, guild_id, thread_id, name, captain_id, due_interval_hours
		FROM archived_tasks
		WHERE guild_id = $1
	`
	}

	args := []any{guildID}
	if len(filter.CaptainIDs) > 0 {
		query += " AND captain_id = ANY($2)"
		args = append(args, filter.CaptainIDs)
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.GuildID, &t.ThreadID, &t.Name, &t.CaptainID, &t.DueIntervalHours); err != nil {
			return nil, err
		}
		t.Active = !filter.Archived
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !filter.Archived {
		for i := range tasks {
			tasks[i].Assignees, err = r.assignees(ctx, tasks[i].ID)
			if err != nil {
				return nil, err
			}
		}
	}
	return tasks, nil
}

func (r *TaskRepo) SetAssignees(ctx context.Context, taskID int64, userIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM task_assignees WHERE task_id = $1", taskID); err != nil {
		return err
	}
	for _, uid := range userIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, taskID, uid); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Archive переносит задачу в archived_tasks и удаляет её из tasks.
// Каскад чистит исполнителей и чекины.
func (r *TaskRepo) Archive(ctx context.Context, taskID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		INSERT INTO archived_tasks (original_task_id, guild_id, thread_id, name, captain_id, due_interval_hours)
		SELECT id, guild_id, thread_id, name, captain_id, due_interval_hours
		FROM tasks WHERE id = $1
	`, taskID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}

	if _, err := tx.Exec(ctx, "DELETE FROM tasks WHERE id = $1", taskID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *TaskRepo) Delete(ctx context.Context, taskID int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", taskID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

// DeleteArchived удаляет записи архива по именам (пустой список - весь архив
// гильдии) и возвращает удалённые строки, чтобы бот мог убрать треды.
func (r *TaskRepo) DeleteArchived(ctx context.Context, guildID int64, names []string) ([]model.ArchivedTask, error) {
	query := `
		DELETE FROM archived_tasks
		WHERE guild_id = $1
		RETURNING id, original_task_id, guild_id, thread_id, name, captain_id, due_interval_hours, archived_at
	`
	args := []any{guildID}
	if len(names) > 0 {
		query = `
		DELETE FROM archived_tasks
		WHERE guild_id = $1 AND name = ANY($2)
		RETURNING id, original_task_id, guild_id, thread_id, name, captain_id, due_interval_hours, archived_at
	`
		args = append(args, names)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deleted := make([]model.ArchivedTask, 0, len(names))
	for rows.Next() {
		var a model.ArchivedTask
		if err := rows.Scan(&a.ID, &a.OriginalTaskID, &a.GuildID, &a.ThreadID, &a.Name, &a.CaptainID, &a.DueIntervalHours, &a.ArchivedAt); err != nil {
			return nil, err
		}
		deleted = append(deleted, a)
	}
	return deleted, rows.Err()
}

func (r *TaskRepo) ListArchivedNames(ctx context.Context, guildID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT name FROM archived_tasks WHERE guild_id = $1 ORDER BY id", guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *TaskRepo) RecordCheckin(ctx context.Context, c model.Checkin) (model.Checkin, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO checkins (task_id, user_id, status, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.TaskID, c.UserID, c.Status, c.Content).Scan(&c.ID, &c.CreatedAt)
	return c, r.mapError(err)
}

func (r *TaskRepo) CheckinChannel(ctx context.Context, guildID int64) (int64, error) {
	var channelID int64
	err := r.pool.QueryRow(ctx, `
		SELECT channel_id FROM checkin_channels WHERE guild_id = $1
	`, guildID).Scan(&channelID)
	if err == pgx.ErrNoRows {
		return 0, ErrorNotFound
	}
	return channelID, err
}

func (r *TaskRepo) SetCheckinChannel(ctx context.Context, guildID, channelID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO checkin_channels (guild_id, channel_id) VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id
	`, guildID, channelID)
	return err
}

func (r *TaskRepo) assignees(ctx context.Context, taskID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, "SELECT user_id FROM task_assignees WHERE task_id = $1 ORDER BY user_id", taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrorConflict
		}
		if strings.HasPrefix(pgErr.Code, "23") {
			return fmt.Errorf("%w: %s", ErrorConflict, pgErr.ConstraintName)
		}
	}
	return err
}
