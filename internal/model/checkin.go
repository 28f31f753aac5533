package model

import "time"

// CheckinStatus is the progress choice an assignee picks from the check-in menu.
type CheckinStatus string

const (
	StatusDone     CheckinStatus = "done"
	StatusAlmost   CheckinStatus = "almost"
	StatusNotClose CheckinStatus = "not_close"
	StatusSkipped  CheckinStatus = "skipped"
)

// Report returns the phrase forwarded to the check-in channel for this status.
func (s CheckinStatus) Report() string {
	switch s {
	case StatusDone:
		return "did all my work for this task, fully completed!"
	case StatusAlmost:
		return "did some work today, and should be done soon!"
	case StatusNotClose:
		return "did some work today, but probably won't be done soon."
	case StatusSkipped:
		return "didn't do any work today."
	default:
		return string(s)
	}
}

func (s CheckinStatus) Valid() bool {
	switch s {
	case StatusDone, StatusAlmost, StatusNotClose, StatusSkipped:
		return true
	}
	return false
}

// Checkin is one recorded progress report against a task.
type Checkin struct {
	ID        int64         `json:"id"`
	TaskID    int64         `json:"task_id"`
	UserID    int64         `json:"user_id"`
	Status    CheckinStatus `json:"status"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
}

// Reminder is a one-shot scheduled message for a channel or thread.
type Reminder struct {
	ID        int64     `json:"id"`
	GuildID   int64     `json:"guild_id"`
	ChannelID int64     `json:"channel_id"`
	SendAt    time.Time `json:"send_at"`
	CaptainID int64     `json:"captain_id"`
	Content   string    `json:"content"`
	Assignees []int64   `json:"assignees,omitempty"`
}
