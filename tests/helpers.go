package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/airo-bot/airo/internal/repo"
)

// SetupTestDB создает тестовую БД с помощью testcontainers
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	// Создаем PostgreSQL контейнер
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := repo.Migrate(ctx, pool); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	cleanup := func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// TruncateTables очищает все таблицы
func TruncateTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, "TRUNCATE tasks, archived_tasks, checkins, checkin_channels, reminders RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// SeedCheckinChannel настраивает канал чекинов для гильдии
func SeedCheckinChannel(t *testing.T, pool *pgxpool.Pool, guildID, channelID int64) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO checkin_channels (guild_id, channel_id) VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id
	`, guildID, channelID)
	if err != nil {
		t.Fatalf("Failed to seed check-in channel: %v", err)
	}
}

// SeedDueTasks создает задачи с уже просроченным next_check_at
func SeedDueTasks(t *testing.T, pool *pgxpool.Pool, guildID int64, count int) []int64 {
	t.Helper()
	ctx := context.Background()

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO tasks (guild_id, thread_id, name, captain_id, due_interval_hours, next_check_at, active)
			VALUES ($1, $2, $3, $4, 26, now() - interval '1 hour', TRUE)
			RETURNING id
		`, guildID, int64(2000+i), fmt.Sprintf("task-%d", i+1), int64(300)).Scan(&id)

		if err != nil {
			t.Fatalf("Failed to seed task: %v", err)
		}
		ids = append(ids, id)
	}

	return ids
}

// SeedDueReminder создает напоминание, которое уже пора доставить
func SeedDueReminder(t *testing.T, pool *pgxpool.Pool, guildID, channelID int64, content string, assignees []int64) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO reminders (guild_id, channel_id, send_at, captain_id, content)
		VALUES ($1, $2, now() - interval '1 minute', $3, $4)
		RETURNING id
	`, guildID, channelID, int64(300), content).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed reminder: %v", err)
	}

	for _, uid := range assignees {
		if _, err := pool.Exec(ctx, "INSERT INTO reminder_assignees (reminder_id, user_id) VALUES ($1, $2)", id, uid); err != nil {
			t.Fatalf("Failed to seed reminder assignee: %v", err)
		}
	}
	return id
}

// WaitForCondition ждет выполнения условия с таймаутом
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
