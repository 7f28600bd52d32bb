// Package schedulertest provides a fake clock and fake notification
// surfaces for exercising scheduler.Scheduler deterministically.
package schedulertest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
)

// Clock is a manual scheduler.Clock. Timers only fire inside Advance.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

type timer struct {
	c       *Clock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

// NewClock returns a Clock set to now.
func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) scheduler.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{c: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, running due callbacks in order of
// their deadline (ties in creation order). Callbacks run without the clock lock.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

func (c *Clock) nextLocked(target time.Time) *timer {
	var live []*timer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].at.Equal(live[j].at) {
			return live[i].at.Before(live[j].at)
		}
		return live[i].seq < live[j].seq
	})
	return live[0]
}

// Active returns the number of timers that are neither stopped nor fired.
func (c *Clock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Platform is an in-memory scheduler.Platform.
type Platform struct {
	mu sync.Mutex

	state   scheduler.Permission
	answer  scheduler.Permission
	prompts int
	shown   []scheduler.Alert
	closed  []string

	// ShowErr, when set, makes Show fail; ShowPanic makes it panic.
	ShowErr    error
	ShowPanic  bool
	RequestErr error
}

// NewPlatform returns a Platform in state; prompts are answered with answer.
func NewPlatform(state, answer scheduler.Permission) *Platform {
	return &Platform{state: state, answer: answer}
}

func (p *Platform) Permission() scheduler.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetPermission simulates the user changing the setting outside the app.
func (p *Platform) SetPermission(state scheduler.Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

func (p *Platform) RequestPermission(context.Context) (scheduler.Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts++
	if p.RequestErr != nil {
		return scheduler.PermissionDefault, p.RequestErr
	}
	p.state = p.answer
	return p.state, nil
}

func (p *Platform) Show(a scheduler.Alert) (scheduler.Handle, error) {
	if p.ShowPanic {
		panic("platform exploded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ShowErr != nil {
		return nil, p.ShowErr
	}
	p.shown = append(p.shown, a)
	return handle{p: p, id: a.ID}, nil
}

// Prompts returns how many times the user was prompted.
func (p *Platform) Prompts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts
}

// Shown returns a copy of every alert shown so far.
func (p *Platform) Shown() []scheduler.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]scheduler.Alert(nil), p.shown...)
}

// Closed returns the IDs of alerts closed through their Handle.
func (p *Platform) Closed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.closed...)
}

type handle struct {
	p  *Platform
	id string
}

func (h handle) Close() error {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	h.p.closed = append(h.p.closed, h.id)
	return nil
}

// ErrMuted is returned by a Chime or Sender configured to fail.
var ErrMuted = errors.New("muted")

// Recorder implements scheduler.Chime and scheduler.Sender.
type Recorder struct {
	mu    sync.Mutex
	tones []scheduler.Tone
	sent  []scheduler.Alert
	Fail  bool
}

func (r *Recorder) Play(t scheduler.Tone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tones = append(r.tones, t)
	if r.Fail {
		return ErrMuted
	}
	return nil
}

func (r *Recorder) SendAlert(a scheduler.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, a)
	if r.Fail {
		return ErrMuted
	}
	return nil
}

// Tones returns the tones played so far.
func (r *Recorder) Tones() []scheduler.Tone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scheduler.Tone(nil), r.tones...)
}

// Sent returns the alerts mirrored so far.
func (r *Recorder) Sent() []scheduler.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scheduler.Alert(nil), r.sent...)
}
