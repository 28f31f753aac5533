package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airo-bot/airo/internal/model"
)

type ReminderRepo struct {
	pool *pgxpool.Pool
}

func NewReminderRepo(pool *pgxpool.Pool) *ReminderRepo {
	return &ReminderRepo{pool: pool}
}

// Create вставляет напоминание вместе с адресатами в одной транзакции.
func (r *ReminderRepo) Create(ctx context.Context, rem model.Reminder) (model.Reminder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return rem, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO reminders (guild_id, channel_id, send_at, captain_id, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rem.GuildID, rem.ChannelID, rem.SendAt, rem.CaptainID, rem.Content).Scan(&rem.ID)
	if err != nil {
		return rem, err
	}

	for _, uid := range rem.Assignees {
		if _, err := tx.Exec(ctx, `
			INSERT INTO reminder_assignees (reminder_id, user_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, rem.ID, uid); err != nil {
			return rem, err
		}
	}

	return rem, tx.Commit(ctx)
}
