package domain

import "time"

// AlertPlan holds the delays, measured from now, at which a task's alerts fire.
// A zero Reminder means no separate reminder is scheduled.
type AlertPlan struct {
	Reminder time.Duration
	Due      time.Duration
}

// HasReminder reports whether a separate reminder alert is planned.
func (p AlertPlan) HasReminder() bool { return p.Reminder > 0 }

// PlanAlerts computes the alert delays for a task due at `due`.
//
// Overdue tasks get nothing (ok=false). The reminder fires `lead` before the
// due instant and is dropped when that point is not strictly in the future,
// so a task due within `lead` only gets its due-now alert. When planned, the
// reminder delay is always strictly less than the due delay.
func PlanAlerts(now, due time.Time, lead time.Duration) (AlertPlan, bool) {
	diff := due.Sub(now)
	if diff < 0 {
		return AlertPlan{}, false
	}
	plan := AlertPlan{Due: diff}
	if r := diff - lead; r > 0 && lead > 0 {
		plan.Reminder = r
	}
	return plan, true
}

// DueWithin reports whether an incomplete task is due in (now, now+d].
func DueWithin(t Task, now time.Time, d time.Duration) bool {
	if t.Completed {
		return false
	}
	return t.ScheduledDate.After(now) && !t.ScheduledDate.After(now.Add(d))
}
