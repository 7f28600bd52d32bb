package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/domain"
)

const (
	DefaultReminderLead   = 5 * time.Minute
	DefaultDueCloseAfter  = 60 * time.Second
	DefaultTestCloseAfter = 5 * time.Second
	DefaultIcon           = "/icon-192.png"
)

// Options configures a Scheduler. Zero values take the defaults above.
type Options struct {
	Clock    Clock
	Chime    Chime
	Senders  []Sender
	Location *time.Location // for rendering due times in alert bodies
	Icon     string

	ReminderLead   time.Duration
	DueCloseAfter  time.Duration
	TestCloseAfter time.Duration

	// OnGranted runs (outside the scheduler lock) whenever the cached
	// permission flips to granted.
	OnGranted func()
}

type entry struct {
	seq   uint64
	timer Timer
}

// Scheduler arranges the reminder and due-now alerts of incomplete tasks.
//
// Each task owns at most one pending alert per AlertKey. Timers fire on their
// own goroutines; an entry is stamped with a sequence number when armed and a
// callback whose entry has been cleared or replaced returns without showing
// anything, so Clear always wins over a timer racing to fire.
type Scheduler struct {
	platform Platform
	log      *zap.Logger
	opts     Options

	mu         sync.Mutex
	granted    bool
	seq        uint64
	pending    map[AlertKey]entry
	closers    map[string]Timer // alert ID -> safety close of a due-now alert
	testCloser Timer
}

// New creates a Scheduler and reads the platform's current permission.
func New(platform Platform, log *zap.Logger, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Icon == "" {
		opts.Icon = DefaultIcon
	}
	if opts.ReminderLead <= 0 {
		opts.ReminderLead = DefaultReminderLead
	}
	if opts.DueCloseAfter <= 0 {
		opts.DueCloseAfter = DefaultDueCloseAfter
	}
	if opts.TestCloseAfter <= 0 {
		opts.TestCloseAfter = DefaultTestCloseAfter
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Scheduler{
		platform: platform,
		log:      log,
		opts:     opts,
		pending:  make(map[AlertKey]entry),
		closers:  make(map[string]Timer),
	}
	s.granted = platform.Permission() == PermissionGranted
	return s
}

// --- Permission ---

// HasPermission returns the cached permission flag.
func (s *Scheduler) HasPermission() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.granted
}

// Refresh re-reads the platform permission, in case it changed outside the app.
func (s *Scheduler) Refresh() Permission {
	p := s.platform.Permission()
	s.setPermission(p)
	return p
}

// RequestPermission resolves to whether notifications may be shown.
// Granted and denied return immediately; only the default state prompts.
func (s *Scheduler) RequestPermission(ctx context.Context) (bool, error) {
	switch p := s.Refresh(); p {
	case PermissionGranted:
		return true, nil
	case PermissionDenied:
		return false, nil
	}

	p, err := s.platform.RequestPermission(ctx)
	if err != nil {
		s.log.Warn("permission request failed", zap.Error(err))
		return false, err
	}
	s.setPermission(p)
	s.log.Info("permission request answered", zap.String("permission", string(p)))
	return p == PermissionGranted, nil
}

func (s *Scheduler) setPermission(p Permission) {
	granted := p == PermissionGranted

	s.mu.Lock()
	flipped := granted && !s.granted
	s.granted = granted
	s.mu.Unlock()

	if flipped && s.opts.OnGranted != nil {
		s.opts.OnGranted()
	}
}

// --- Scheduling ---

// Schedule (re)arms the alerts of t, replacing any pending ones.
// Nothing is armed without permission, for completed tasks, or for overdue tasks.
func (s *Scheduler) Schedule(t domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.granted {
		return
	}
	s.clearLocked(t.ID)
	if t.Completed {
		return
	}

	plan, ok := domain.PlanAlerts(s.opts.Clock.Now(), t.ScheduledDate, s.opts.ReminderLead)
	if !ok {
		s.log.Debug("task overdue, nothing scheduled", zap.Int64("taskID", t.ID))
		return
	}
	if plan.HasReminder() {
		s.armLocked(AlertKey{TaskID: t.ID, Reminder: true}, plan.Reminder, t)
	}
	s.armLocked(AlertKey{TaskID: t.ID}, plan.Due, t)

	s.log.Debug("task scheduled",
		zap.Int64("taskID", t.ID),
		zap.Duration("reminderIn", plan.Reminder),
		zap.Duration("dueIn", plan.Due),
	)
}

// Sync reschedules every incomplete task in tasks and clears the alerts of
// completed tasks and of tasks no longer present.
func (s *Scheduler) Sync(tasks []domain.Task) {
	keep := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			s.Clear(t.ID)
			continue
		}
		keep[t.ID] = true
		s.Schedule(t)
	}

	s.mu.Lock()
	for k := range s.pending {
		if !keep[k.TaskID] {
			s.clearLocked(k.TaskID)
		}
	}
	s.mu.Unlock()
}

func (s *Scheduler) armLocked(key AlertKey, d time.Duration, t domain.Task) {
	s.seq++
	seq := s.seq
	timer := s.opts.Clock.AfterFunc(d, func() { s.fire(key, seq, t) })
	s.pending[key] = entry{seq: seq, timer: timer}
}

func (s *Scheduler) fire(key AlertKey, seq uint64, t domain.Task) {
	s.mu.Lock()
	e, ok := s.pending[key]
	if !ok || e.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	granted := s.granted
	s.mu.Unlock()

	if !granted {
		s.log.Info("permission revoked, alert dropped", zap.Int64("taskID", t.ID), zap.Stringer("key", key))
		return
	}
	s.deliver(s.buildAlert(key, t))
}

func (s *Scheduler) buildAlert(key AlertKey, t domain.Task) Alert {
	a := Alert{
		ID:     uuid.NewString(),
		TaskID: t.ID,
		Kind:   key.kind(),
		Body: fmt.Sprintf("Due at %s · Priority: %s · Category: %s",
			domain.LocalizeTime(t.ScheduledDate, s.opts.Location),
			domain.Title(string(t.Priority)),
			domain.Title(string(t.Category)),
		),
		Icon:   s.opts.Icon,
		Tag:    "task-" + key.String(),
		Silent: s.opts.Chime != nil,
		DueAt:  t.ScheduledDate,
	}
	if key.Reminder {
		a.Title = fmt.Sprintf("Reminder: %s in %s", t.Title, shortDuration(s.opts.ReminderLead))
	} else {
		a.Title = "Due now: " + t.Title
		a.RequireInteraction = true
	}
	return a
}

// deliver shows a fired alert, plays its tone and mirrors it to the senders.
func (s *Scheduler) deliver(a Alert) {
	log := s.log.With(zap.Int64("taskID", a.TaskID), zap.String("kind", string(a.Kind)), zap.String("alertID", a.ID))

	if h, ok := s.show(a); ok && a.RequireInteraction {
		s.mu.Lock()
		s.closers[a.ID] = s.opts.Clock.AfterFunc(s.opts.DueCloseAfter, func() {
			s.mu.Lock()
			_, live := s.closers[a.ID]
			delete(s.closers, a.ID)
			s.mu.Unlock()
			if !live {
				return
			}
			if err := h.Close(); err != nil {
				log.Warn("force close failed", zap.Error(err))
			}
		})
		s.mu.Unlock()
	}

	tone := reminderTone
	if a.Kind == KindDue {
		tone = dueTone
	}
	s.playTone(tone)

	for _, snd := range s.opts.Senders {
		if err := snd.SendAlert(a); err != nil {
			log.Warn("mirror alert failed", zap.Error(err))
		}
	}
	log.Info("alert fired", zap.String("title", a.Title))
}

// show hands a to the platform; any failure is logged and reported as false.
func (s *Scheduler) show(a Alert) (h Handle, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("platform panicked showing alert", zap.Any("panic", r), zap.String("alertID", a.ID))
			h, ok = nil, false
		}
	}()
	h, err := s.platform.Show(a)
	if err != nil {
		s.log.Warn("show alert failed", zap.Error(err), zap.Int64("taskID", a.TaskID), zap.String("kind", string(a.Kind)))
		return nil, false
	}
	return h, true
}

func (s *Scheduler) playTone(t Tone) {
	if s.opts.Chime == nil {
		return
	}
	if err := s.opts.Chime.Play(t); err != nil {
		s.log.Debug("chime failed", zap.Error(err))
	}
}

// --- Clearing ---

// Clear cancels the due-now and reminder alerts of a task. Absent entries are ignored.
func (s *Scheduler) Clear(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(taskID)
}

func (s *Scheduler) clearLocked(taskID int64) {
	for _, key := range []AlertKey{{TaskID: taskID}, {TaskID: taskID, Reminder: true}} {
		if e, ok := s.pending[key]; ok {
			e.timer.Stop()
			delete(s.pending, key)
		}
	}
}

// ClearAll cancels every pending alert and safety-close timer.
func (s *Scheduler) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, key)
	}
	for id, t := range s.closers {
		t.Stop()
		delete(s.closers, id)
	}
	if s.testCloser != nil {
		s.testCloser.Stop()
		s.testCloser = nil
	}
}

// --- Queries ---

// Count returns the number of pending alerts.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// IsScheduled reports whether the task has a pending due-now or reminder alert.
func (s *Scheduler) IsScheduled(taskID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, due := s.pending[AlertKey{TaskID: taskID}]
	_, rem := s.pending[AlertKey{TaskID: taskID, Reminder: true}]
	return due || rem
}

// Pending returns the pending alert keys of a task.
func (s *Scheduler) Pending(taskID int64) []AlertKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []AlertKey
	for _, key := range []AlertKey{{TaskID: taskID, Reminder: true}, {TaskID: taskID}} {
		if _, ok := s.pending[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// --- Platform signals ---

// Observe records a signal reported by the platform for a shown alert.
// A click or close on a due-now alert cancels its safety close.
func (s *Scheduler) Observe(ev AlertEvent) {
	log := s.log.With(zap.String("alertID", ev.AlertID), zap.String("event", ev.Event))
	switch ev.Event {
	case EventClick, EventClose:
		s.mu.Lock()
		if t, ok := s.closers[ev.AlertID]; ok {
			t.Stop()
			delete(s.closers, ev.AlertID)
		}
		s.mu.Unlock()
		log.Debug("alert dismissed")
	case EventError:
		log.Warn("alert error reported", zap.String("detail", ev.Detail))
	case EventShow:
		log.Debug("alert shown")
	default:
		log.Debug("unknown alert event")
	}
}

// --- Diagnostics ---

// TestDesktopNotification shows an immediate test alert.
// In the default state it prompts once and retries on grant; when denied it
// fails without prompting. Repeated calls replace the previous auto-close timer.
func (s *Scheduler) TestDesktopNotification(ctx context.Context) bool {
	return s.testNotification(ctx, true)
}

func (s *Scheduler) testNotification(ctx context.Context, mayPrompt bool) bool {
	switch s.Refresh() {
	case PermissionDenied:
		s.log.Info("test notification blocked: permission denied")
		return false
	case PermissionDefault:
		if !mayPrompt {
			return false
		}
		granted, err := s.RequestPermission(ctx)
		if err != nil || !granted {
			return false
		}
		return s.testNotification(ctx, false)
	}

	a := Alert{
		ID:     uuid.NewString(),
		Kind:   KindTest,
		Title:  "Test notification",
		Body:   "Desktop notifications are working.",
		Icon:   s.opts.Icon,
		Tag:    "test-notification",
		Silent: s.opts.Chime != nil,
	}
	h, ok := s.show(a)
	if !ok {
		return false
	}
	s.playTone(reminderTone)

	s.mu.Lock()
	if s.testCloser != nil {
		s.testCloser.Stop()
	}
	s.testCloser = s.opts.Clock.AfterFunc(s.opts.TestCloseAfter, func() { _ = h.Close() })
	s.mu.Unlock()
	return true
}

func shortDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
