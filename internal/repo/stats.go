package repo

import "context"

// Stats отражает состояние бота для операционного API.
type Stats struct {
	ActiveTasks      int            `json:"active_tasks"`
	ArchivedTasks    int            `json:"archived_tasks"`
	PendingReminders int            `json:"pending_reminders"`
	CheckinsByStatus map[string]int `json:"checkins_by_status"`
}

func (r *TaskRepo) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{CheckinsByStatus: make(map[string]int)}

	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tasks WHERE active),
			(SELECT COUNT(*) FROM archived_tasks),
			(SELECT COUNT(*) FROM reminders)
	`).Scan(&stats.ActiveTasks, &stats.ArchivedTasks, &stats.PendingReminders)
	if err != nil {
		return stats, err
	}

	rows, err := r.pool.Query(ctx, "SELECT status, COUNT(*) FROM checkins GROUP BY status")
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.CheckinsByStatus[status] = count
	}
	return stats, rows.Err()
}
