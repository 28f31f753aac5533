package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airo-bot/airo/internal/model"
	"github.com/airo-bot/airo/internal/repo"
	"github.com/airo-bot/airo/internal/service"
)

func TestConcurrent_DuplicateTaskNames(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)
	SeedCheckinChannel(t, pool, testGuildID, testChannelID)

	taskRepo := repo.NewTaskRepo(pool)
	taskService := service.NewTaskService(taskRepo, repo.NewReminderRepo(pool))
	ctx := context.Background()

	const goroutines = 10

	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	// Все горутины пытаются создать задачу с одним и тем же именем
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = taskService.CreateTask(ctx, model.Task{
				GuildID:   testGuildID,
				ThreadID:  int64(300000000000000001 + idx),
				Name:      "contested name",
				CaptainID: testCaptainID,
			})
		}(i)
	}

	wg.Wait()

	successCount := 0
	conflictCount := 0
	for i, err := range errs {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, repo.ErrorConflict):
			conflictCount++
		default:
			t.Errorf("unexpected error at %d: %v", i, err)
		}
	}

	assert.Equal(t, 1, successCount, "exactly one create should succeed")
	assert.Equal(t, goroutines-1, conflictCount, "others should conflict")

	var count int
	pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count)
	assert.Equal(t, 1, count, "only one task should be created")
}

func TestConcurrent_CheckinClaims(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)
	const seeded = 20
	SeedDueTasks(t, pool, testGuildID, seeded)

	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[int64]int)
	)
	const workers = 5

	// Несколько воркеров конкурентно забирают просроченные задачи тем же
	// запросом, что и пул напоминаний
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < seeded; j++ {
				var taskID int64
				err := pool.QueryRow(ctx, `
					WITH due AS (
						SELECT id FROM tasks
						WHERE active AND next_check_at <= now()
						ORDER BY next_check_at
						FOR UPDATE SKIP LOCKED
						LIMIT 1
					)
					UPDATE tasks
					SET next_check_at = now() + make_interval(hours => due_interval_hours)
					FROM due
					WHERE tasks.id = due.id
					RETURNING tasks.id
				`).Scan(&taskID)
				if err != nil {
					continue
				}

				mu.Lock()
				claimed[taskID]++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Len(t, claimed, seeded, "every due task should be claimed")
	for id, n := range claimed {
		assert.Equal(t, 1, n, "task %d claimed more than once", id)
	}
}

func TestConcurrent_ReminderClaims(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)
	reminderID := SeedDueReminder(t, pool, testGuildID, testChannelID, "standup", []int64{100000000000000002})

	ctx := context.Background()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		deliveries int
	)
	const workers = 8

	// Разовое напоминание должно достаться ровно одному воркеру
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tx, err := pool.Begin(ctx)
			if err != nil {
				return
			}
			defer tx.Rollback(ctx)

			var id int64
			err = tx.QueryRow(ctx, `
				SELECT id FROM reminders
				WHERE send_at <= now()
				ORDER BY send_at
				FOR UPDATE SKIP LOCKED
				LIMIT 1
			`).Scan(&id)
			if err != nil {
				return
			}

			if _, err := tx.Exec(ctx, "DELETE FROM reminders WHERE id = $1", id); err != nil {
				return
			}
			if err := tx.Commit(ctx); err != nil {
				return
			}

			mu.Lock()
			deliveries++
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, deliveries, "reminder %d should be delivered exactly once", reminderID)

	var count int
	pool.QueryRow(ctx, "SELECT COUNT(*) FROM reminders").Scan(&count)
	assert.Zero(t, count)
}

func TestConcurrent_CheckinsOnOneTask(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)
	SeedCheckinChannel(t, pool, testGuildID, testChannelID)
	taskIDs := SeedDueTasks(t, pool, testGuildID, 1)

	taskService := service.NewTaskService(repo.NewTaskRepo(pool), repo.NewReminderRepo(pool))
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	statuses := []model.CheckinStatus{model.StatusDone, model.StatusAlmost, model.StatusNotClose, model.StatusSkipped}

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = taskService.RecordCheckin(ctx, taskIDs[0], int64(100000000000000002+idx), statuses[idx%len(statuses)])
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "check-in %d should not error", i)
	}

	var count int
	pool.QueryRow(ctx, "SELECT COUNT(*) FROM checkins").Scan(&count)
	assert.Equal(t, goroutines, count)
}

func TestConcurrent_CreateAndList(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)
	SeedCheckinChannel(t, pool, testGuildID, testChannelID)

	taskRepo := repo.NewTaskRepo(pool)
	taskService := service.NewTaskService(taskRepo, repo.NewReminderRepo(pool))
	ctx := context.Background()

	var wg sync.WaitGroup
	const creators = 5
	const readers = 5

	// Конкурентные создания
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				taskService.CreateTask(ctx, model.Task{
					GuildID:   testGuildID,
					ThreadID:  int64(310000000000000000 + idx*10 + j),
					Name:      fmt.Sprintf("task %d-%d", idx, j),
					CaptainID: testCaptainID,
				})
				time.Sleep(50 * time.Millisecond)
			}
		}(i)
	}

	// Конкурентные чтения
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				taskRepo.List(ctx, testGuildID, model.TaskFilter{})
				time.Sleep(30 * time.Millisecond)
			}
		}()
	}

	wg.Wait()

	tasks, err := taskRepo.List(ctx, testGuildID, model.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, creators*5, len(tasks))
}
