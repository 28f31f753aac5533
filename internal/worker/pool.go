package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/airo-bot/airo/internal/model"
)

// Notifier доставляет сообщения в Discord. Реализуется ботом; в тестах
// подменяется фейком.
type Notifier interface {
	NotifyThread(threadID int64, content string) error
	NotifyReminder(rem model.Reminder) error
}

const checkinNag = "Don't forget to send in today's check-in if you haven't already!"

// Waking hours: наг-сообщения по чекинам шлём только с 09:00 до 21:00
// локального времени. Разовые напоминания не ограничиваются - их время
// задали явно.
const (
	wakingHourStart = 9
	wakingHourEnd   = 21
)

type Pool struct {
	pool     *pgxpool.Pool
	notifier Notifier
	logger   *zap.Logger
	count    int
	interval time.Duration
	now      func() time.Time
	wg       sync.WaitGroup
	stop     chan struct{}
}

func NewPool(pool *pgxpool.Pool, notifier Notifier, logger *zap.Logger, count int) *Pool {
	return &Pool{
		pool:     pool,
		notifier: notifier,
		logger:   logger,
		count:    count,
		interval: time.Minute,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting reminder worker pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) Stop() {
	p.logger.Info("Stopping reminder worker pool...")
	close(p.stop)
	p.wg.Wait()
	p.logger.Info("Reminder worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if withinWakingHours(p.now()) {
				if err := p.processDueCheckin(ctx, id); err != nil && err != pgx.ErrNoRows {
					p.logger.Error("check-in worker error", zap.Int("worker", id), zap.Error(err))
				}
			}
			if err := p.processDueReminder(ctx, id); err != nil && err != pgx.ErrNoRows {
				p.logger.Error("reminder worker error", zap.Int("worker", id), zap.Error(err))
			}
		}
	}
}

func withinWakingHours(t time.Time) bool {
	h := t.Hour()
	return h >= wakingHourStart && h < wakingHourEnd
}

// processDueCheckin забирает одну просроченную задачу и шлёт напоминание в
// её тред. next_check_at сдвигается тем же запросом, поэтому два воркера
// не возьмут одну задачу (FOR UPDATE SKIP LOCKED).
func (p *Pool) processDueCheckin(ctx context.Context, workerID int) error {
	task, err := p.claimDueTask(ctx)
	if err != nil {
		return err
	}

	p.logger.Info("Sending check-in reminder",
		zap.Int("worker", workerID),
		zap.Int64("task_id", task.ID),
		zap.String("name", task.Name),
	)

	if err := p.notifier.NotifyThread(task.ThreadID, checkinNag); err != nil {
		p.logger.Error("failed to nag thread",
			zap.Int64("thread_id", task.ThreadID),
			zap.Error(err),
		)
	}
	return nil
}

func (p *Pool) claimDueTask(ctx context.Context) (model.Task, error) {
	var t model.Task

	err := p.pool.QueryRow(ctx, `
		WITH due AS (
			SELECT id
			FROM tasks
			WHERE active AND next_check_at <= now()
			ORDER BY next_check_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tasks
		SET next_check_at = now() + make_interval(hours => tasks.due_interval_hours)
		FROM due
		WHERE tasks.id = due.id
		RETURNING tasks.id, tasks.guild_id, tasks.thread_id, tasks.name,
		          tasks.captain_id, tasks.due_interval_hours, tasks.next_check_at
	`).Scan(&t.ID, &t.GuildID, &t.ThreadID, &t.Name, &t.CaptainID, &t.DueIntervalHours, &t.NextCheckAt)

	return t, err
}

// processDueReminder забирает одно созревшее разовое напоминание. Строка
// удаляется в той же транзакции - доставка не более одного раза здесь
// важнее гарантированных повторов.
func (p *Pool) processDueReminder(ctx context.Context, workerID int) error {
	rem, err := p.claimDueReminder(ctx)
	if err != nil {
		return err
	}

	p.logger.Info("Delivering reminder",
		zap.Int("worker", workerID),
		zap.Int64("reminder_id", rem.ID),
		zap.Int64("channel_id", rem.ChannelID),
	)

	if err := p.notifier.NotifyReminder(rem); err != nil {
		p.logger.Error("failed to deliver reminder",
			zap.Int64("reminder_id", rem.ID),
			zap.Error(err),
		)
	}
	return nil
}

func (p *Pool) claimDueReminder(ctx context.Context) (model.Reminder, error) {
	var rem model.Reminder

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return rem, err
	}
	defer tx.Rollback(ctx)

	// Сначала читаем строку и адресатов, и только затем удаляем: каскад по
	// reminder_assignees сработал бы раньше, чем мы их прочитали.
	err = tx.QueryRow(ctx, `
		SELECT id, guild_id, channel_id, send_at, captain_id, COALESCE(content, '')
		FROM reminders
		WHERE send_at <= now()
		ORDER BY send_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&rem.ID, &rem.GuildID, &rem.ChannelID, &rem.SendAt, &rem.CaptainID, &rem.Content)
	if err != nil {
		return rem, err
	}

	rows, err := tx.Query(ctx, "SELECT user_id FROM reminder_assignees WHERE reminder_id = $1 ORDER BY user_id", rem.ID)
	if err != nil {
		return rem, err
	}
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return rem, err
		}
		rem.Assignees = append(rem.Assignees, uid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rem, err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM reminders WHERE id = $1", rem.ID); err != nil {
		return rem, err
	}

	return rem, tx.Commit(ctx)
}
