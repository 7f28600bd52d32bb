package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Permission mirrors the platform's notification consent state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission maps unknown values to PermissionDefault.
func ParsePermission(s string) Permission {
	switch p := Permission(s); p {
	case PermissionGranted, PermissionDenied:
		return p
	}
	return PermissionDefault
}

// AlertKind tells reminder, due-now and diagnostic alerts apart.
type AlertKind string

const (
	KindReminder AlertKind = "reminder"
	KindDue      AlertKind = "due"
	KindTest     AlertKind = "test"
)

// AlertKey identifies a pending alert: the task id alone for the due-now
// alert, the task id plus the reminder marker for the reminder.
type AlertKey struct {
	TaskID   int64
	Reminder bool
}

func (k AlertKey) String() string {
	if k.Reminder {
		return fmt.Sprintf("%d-reminder", k.TaskID)
	}
	return fmt.Sprintf("%d", k.TaskID)
}

func (k AlertKey) kind() AlertKind {
	if k.Reminder {
		return KindReminder
	}
	return KindDue
}

// Alert is a user-visible notification handed to the Platform.
type Alert struct {
	ID                 string    `json:"id"`
	TaskID             int64     `json:"taskId,omitempty"`
	Kind               AlertKind `json:"kind"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Icon               string    `json:"icon,omitempty"`
	Tag                string    `json:"tag"`
	RequireInteraction bool      `json:"requireInteraction"`
	Silent             bool      `json:"silent"`
	DueAt              time.Time `json:"dueAt"`
}

// AlertEvent is a show/click/error/close signal reported for a shown alert.
type AlertEvent struct {
	AlertID string `json:"alertId"`
	Event   string `json:"event"`
	Detail  string `json:"detail,omitempty"`
}

const (
	EventShow  = "show"
	EventClick = "click"
	EventError = "error"
	EventClose = "close"
)

// Handle closes an alert that is on screen.
type Handle interface {
	Close() error
}

// Platform is the notification surface alerts are shown on.
type Platform interface {
	// Permission returns the platform's current consent value.
	Permission() Permission
	// RequestPermission prompts the user once and returns the outcome.
	RequestPermission(ctx context.Context) (Permission, error)
	Show(a Alert) (Handle, error)
}

// Tone describes the short synthesized sound played with an alert.
type Tone struct {
	FrequencyHz int           `json:"frequencyHz"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"durationMs"`
	Volume      float64       `json:"volume"`
}

func newTone(hz int, d time.Duration, volume float64) Tone {
	return Tone{FrequencyHz: hz, Duration: d, DurationMS: d.Milliseconds(), Volume: volume}
}

var (
	reminderTone = newTone(660, 150*time.Millisecond, 0.2)
	dueTone      = newTone(880, 300*time.Millisecond, 0.3)
)

// Chime plays a Tone. Failures are logged and otherwise ignored.
type Chime interface {
	Play(t Tone) error
}

// Sender is a minimal interface for mirroring fired alerts to another channel.
// telegram.Router implements this.
type Sender interface {
	SendAlert(a Alert) error
}

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the callback from running; false if it already ran or was stopped.
	Stop() bool
}

// Clock abstracts wall time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }
