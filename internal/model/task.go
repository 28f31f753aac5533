package model

import "time"

// Task is an active club task tracked in its own Discord thread.
type Task struct {
	ID               int64     `json:"id"`
	GuildID          int64     `json:"guild_id"`
	ThreadID         int64     `json:"thread_id"`
	Name             string    `json:"name"`
	CaptainID        int64     `json:"captain_id"`
	DueIntervalHours int       `json:"due_interval_hours"`
	NextCheckAt      time.Time `json:"next_check_at"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	Assignees        []int64   `json:"assignees,omitempty"`
}

// ArchivedTask is a completed task moved out of the active set.
type ArchivedTask struct {
	ID               int64     `json:"id"`
	OriginalTaskID   int64     `json:"original_task_id"`
	GuildID          int64     `json:"guild_id"`
	ThreadID         int64     `json:"thread_id"`
	Name             string    `json:"name"`
	CaptainID        int64     `json:"captain_id"`
	DueIntervalHours int       `json:"due_interval_hours"`
	ArchivedAt       time.Time `json:"archived_at"`
}

type TaskFilter struct {
	CaptainIDs []int64
	Archived   bool
}
