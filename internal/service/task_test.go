package service

import (
	"context"
	"testing"
	"time"

	"github.com/airo-bot/airo/internal/model"
	"github.com/airo-bot/airo/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t model.Task) (model.Task, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, id int64) (model.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) GetByName(ctx context.Context, guildID int64, name string) (model.Task, error) {
	args := m.Called(ctx, guildID, name)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, guildID int64, filter model.TaskFilter) ([]model.Task, error) {
	args := m.Called(ctx, guildID, filter)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) SetAssignees(ctx context.Context, taskID int64, userIDs []int64) error {
	args := m.Called(ctx, taskID, userIDs)
	return args.Error(0)
}

func (m *MockTaskRepository) Archive(ctx context.Context, taskID int64) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, taskID int64) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteArchived(ctx context.Context, guildID int64, names []string) ([]model.ArchivedTask, error) {
	args := m.Called(ctx, guildID, names)
	return args.Get(0).([]model.ArchivedTask), args.Error(1)
}

func (m *MockTaskRepository) ListArchivedNames(ctx context.Context, guildID int64) ([]string, error) {
	args := m.Called(ctx, guildID)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTaskRepository) RecordCheckin(ctx context.Context, c model.Checkin) (model.Checkin, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.Checkin), args.Error(1)
}

func (m *MockTaskRepository) CheckinChannel(ctx context.Context, guildID int64) (int64, error) {
	args := m.Called(ctx, guildID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) SetCheckinChannel(ctx context.Context, guildID, channelID int64) error {
	args := m.Called(ctx, guildID, channelID)
	return args.Error(0)
}

func (m *MockTaskRepository) GetStats(ctx context.Context) (repo.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(repo.Stats), args.Error(1)
}

type MockReminderRepository struct {
	mock.Mock
}

func (m *MockReminderRepository) Create(ctx context.Context, r model.Reminder) (model.Reminder, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(model.Reminder), args.Error(1)
}

func TestTaskService_CreateTask(t *testing.T) {
	tests := []struct {
		name      string
		task      model.Task
		setupMock func(*MockTaskRepository)
		wantErr   error
	}{
		{
			name: "successful creation",
			task: model.Task{
				GuildID:          100,
				ThreadID:         200,
				Name:             "website",
				CaptainID:        300,
				DueIntervalHours: 26,
			},
			setupMock: func(m *MockTaskRepository) {
				m.On("CheckinChannel", mock.Anything, int64(100)).Return(int64(555), nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.Name == "website" && t.DueIntervalHours == 26
				})).Return(model.Task{
					ID:               1,
					GuildID:          100,
					Name:             "website",
					DueIntervalHours: 26,
					Active:           true,
				}, nil)
			},
			wantErr: nil,
		},
		{
			name: "default due interval applied",
			task: model.Task{
				GuildID:   100,
				ThreadID:  200,
				Name:      "poster",
				CaptainID: 300,
			},
			setupMock: func(m *MockTaskRepository) {
				m.On("CheckinChannel", mock.Anything, int64(100)).Return(int64(555), nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(t model.Task) bool {
					return t.DueIntervalHours == DefaultDueIntervalHours
				})).Return(model.Task{ID: 2, Name: "poster", Active: true}, nil)
			},
			wantErr: nil,
		},
		{
			name: "no check-in channel configured",
			task: model.Task{
				GuildID:   100,
				Name:      "website",
				CaptainID: 300,
			},
			setupMock: func(m *MockTaskRepository) {
				m.On("CheckinChannel", mock.Anything, int64(100)).Return(int64(0), repo.ErrorNotFound)
			},
			wantErr: ErrNoCheckinChannel,
		},
		{
			name: "validation error - empty name",
			task: model.Task{
				GuildID:   100,
				Name:      "   ",
				CaptainID: 300,
			},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name: "validation error - interval too long",
			task: model.Task{
				GuildID:          100,
				Name:             "website",
				CaptainID:        300,
				DueIntervalHours: 5000,
			},
			setupMock: func(m *MockTaskRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name: "duplicate name",
			task: model.Task{
				GuildID:          100,
				Name:             "website",
				CaptainID:        300,
				DueIntervalHours: 26,
			},
			setupMock: func(m *MockTaskRepository) {
				m.On("CheckinChannel", mock.Anything, int64(100)).Return(int64(555), nil)
				m.On("Create", mock.Anything, mock.Anything).Return(model.Task{}, repo.ErrorConflict)
			},
			wantErr: repo.ErrorConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			service := NewTaskService(mockRepo, new(MockReminderRepository))
			result, err := service.CreateTask(context.Background(), tt.task)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotZero(t, result.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_CompleteTask(t *testing.T) {
	task := model.Task{ID: 7, GuildID: 100, ThreadID: 200, Name: "website"}

	t.Run("archive", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByName", mock.Anything, int64(100), "website").Return(task, nil)
		mockRepo.On("Archive", mock.Anything, int64(7)).Return(nil)

		service := NewTaskService(mockRepo, new(MockReminderRepository))
		got, err := service.CompleteTask(context.Background(), 100, "website", false)

		require.NoError(t, err)
		assert.Equal(t, int64(200), got.ThreadID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("delete", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByName", mock.Anything, int64(100), "website").Return(task, nil)
		mockRepo.On("Delete", mock.Anything, int64(7)).Return(nil)

		service := NewTaskService(mockRepo, new(MockReminderRepository))
		_, err := service.CompleteTask(context.Background(), 100, "website", true)

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown task", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByName", mock.Anything, int64(100), "nope").Return(model.Task{}, repo.ErrorNotFound)

		service := NewTaskService(mockRepo, new(MockReminderRepository))
		_, err := service.CompleteTask(context.Background(), 100, "nope", false)

		assert.ErrorIs(t, err, repo.ErrorNotFound)
		mockRepo.AssertExpectations(t)
	})
}

func TestTaskService_RecordCheckin(t *testing.T) {
	task := model.Task{ID: 7, GuildID: 100, ThreadID: 200, Name: "website", CaptainID: 300}

	t.Run("records and resolves forward channel", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("Get", mock.Anything, int64(7)).Return(task, nil)
		mockRepo.On("RecordCheckin", mock.Anything, mock.MatchedBy(func(c model.Checkin) bool {
			return c.TaskID == 7 && c.UserID == 401 && c.Status == model.StatusAlmost
		})).Return(model.Checkin{ID: 1, TaskID: 7, UserID: 401, Status: model.StatusAlmost}, nil)
		mockRepo.On("CheckinChannel", mock.Anything, int64(100)).Return(int64(555), nil)

		service := NewTaskService(mockRepo, new(MockReminderRepository))
		receipt, err := service.RecordCheckin(context.Background(), 7, 401, model.StatusAlmost)

		require.NoError(t, err)
		assert.Equal(t, int64(555), receipt.ForwardChannel)
		assert.Equal(t, "website", receipt.Task.Name)
		mockRepo.AssertExpectations(t)
	})

	t.Run("checkin survives missing forward channel", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("Get", mock.Anything, int64(7)).Return(task, nil)
		mockRepo.On("RecordCheckin", mock.Anything, mock.Anything).Return(model.Checkin{ID: 2}, nil)
		mockRepo.On("CheckinChannel", mock.Anything, int64(100)).Return(int64(0), repo.ErrorNotFound)

		service := NewTaskService(mockRepo, new(MockReminderRepository))
		receipt, err := service.RecordCheckin(context.Background(), 7, 401, model.StatusDone)

		require.NoError(t, err)
		assert.Zero(t, receipt.ForwardChannel)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid status", func(t *testing.T) {
		service := NewTaskService(new(MockTaskRepository), new(MockReminderRepository))
		_, err := service.RecordCheckin(context.Background(), 7, 401, "maybe")

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestTaskService_ScheduleReminder(t *testing.T) {
	t.Run("valid duration", func(t *testing.T) {
		mockReminders := new(MockReminderRepository)
		mockReminders.On("Create", mock.Anything, mock.MatchedBy(func(r model.Reminder) bool {
			return r.SendAt.After(time.Now().UTC().Add(59*time.Minute)) &&
				r.SendAt.Before(time.Now().UTC().Add(61*time.Minute))
		})).Return(model.Reminder{ID: 1}, nil)

		service := NewTaskService(new(MockTaskRepository), mockReminders)
		rem := model.Reminder{GuildID: 100, ChannelID: 200, CaptainID: 300, Content: "standup"}
		created, err := service.ScheduleReminder(context.Background(), rem, "1h")

		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		mockReminders.AssertExpectations(t)
	})

	t.Run("invalid duration", func(t *testing.T) {
		service := NewTaskService(new(MockTaskRepository), new(MockReminderRepository))
		_, err := service.ScheduleReminder(context.Background(), model.Reminder{}, "soon")

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestTaskService_UpdateAssignees(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByName", mock.Anything, int64(100), "website").Return(model.Task{ID: 7, ThreadID: 200}, nil)
	mockRepo.On("SetAssignees", mock.Anything, int64(7), []int64{401, 402}).Return(nil)

	service := NewTaskService(mockRepo, new(MockReminderRepository))
	got, err := service.UpdateAssignees(context.Background(), 100, "website", []int64{401, 402})

	require.NoError(t, err)
	assert.Equal(t, []int64{401, 402}, got.Assignees)
	mockRepo.AssertExpectations(t)
}

func TestTaskService_GetStats(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	expectedStats := repo.Stats{
		ActiveTasks:      3,
		ArchivedTasks:    5,
		PendingReminders: 1,
		CheckinsByStatus: map[string]int{
			"done":    4,
			"almost":  2,
			"skipped": 1,
		},
	}

	mockRepo.On("GetStats", mock.Anything).Return(expectedStats, nil)

	service := NewTaskService(mockRepo, new(MockReminderRepository))
	stats, err := service.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, expectedStats, stats)
	mockRepo.AssertExpectations(t)
}
