package store

import (
	"time"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
)

// taskRow mirrors the tasks table; times are unix seconds UTC.
type taskRow struct {
	ID            int64
	Title         string
	ScheduledDate int64
	Priority      string
	Category      string
	Completed     int
	CreatedAt     int64
}

func (r taskRow) toDomain() domain.Task {
	return domain.Task{
		ID:            r.ID,
		Title:         r.Title,
		ScheduledDate: fromUnix(r.ScheduledDate),
		Priority:      domain.Priority(r.Priority),
		Category:      domain.Category(r.Category),
		Completed:     r.Completed != 0,
		CreatedAt:     fromUnix(r.CreatedAt),
	}
}

func toUnix(t time.Time) int64 { return t.UTC().Unix() }

func fromUnix(s int64) time.Time { return time.Unix(s, 0).UTC() }

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
