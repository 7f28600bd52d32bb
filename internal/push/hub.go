package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Graey-GamerZ/TimeTaskTracker/internal/scheduler"
	"github.com/Graey-GamerZ/TimeTaskTracker/internal/store"
)

// ErrNoClients is returned when an alert or prompt has no browser tab to go to.
var ErrNoClients = errors.New("no connected clients")

// SettingsStore persists the last permission value reported by the browser.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Hub fans frames out to every connected browser tab. It is the
// notification platform of the scheduler: permission comes from what the
// tabs report, alerts and tones are rendered client-side.
type Hub struct {
	log      *zap.Logger
	settings SettingsStore

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	permMu       sync.Mutex
	permission   scheduler.Permission
	waiters      []chan scheduler.Permission
	onPermission func(scheduler.Permission)
	onEvent      func(scheduler.AlertEvent)
}

// NewHub creates a hub and loads the last known permission from settings.
func NewHub(ctx context.Context, settings SettingsStore, log *zap.Logger) *Hub {
	h := &Hub{
		log:        log,
		settings:   settings,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
		permission: scheduler.PermissionDefault,
	}
	v, err := settings.GetSetting(ctx, store.SettingNotificationPermission)
	switch {
	case err == nil:
		h.permission = scheduler.ParsePermission(v)
	case !errors.Is(err, store.ErrNotFound):
		log.Warn("load permission failed", zap.Error(err))
	}
	return h
}

// OnPermission registers a callback run after every reported permission value.
func (h *Hub) OnPermission(fn func(scheduler.Permission)) {
	h.permMu.Lock()
	defer h.permMu.Unlock()
	h.onPermission = fn
}

// OnAlertEvent registers a callback for show/click/error/close signals.
func (h *Hub) OnAlertEvent(fn func(scheduler.AlertEvent)) {
	h.permMu.Lock()
	defer h.permMu.Unlock()
	h.onEvent = fn
}

// Run processes registrations until ctx is canceled, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Info("push hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client connected", zap.String("client", c.id), zap.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client disconnected", zap.String("client", c.id), zap.Int("clients", n))
		}
	}
}

// Clients returns the number of connected tabs.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every tab and returns how many received it.
// Tabs whose buffer is full are dropped.
func (h *Hub) Broadcast(msg Message) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}

	sent := 0
	var stale []*Client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
			sent++
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	if len(stale) > 0 {
		h.mu.Lock()
		for _, c := range stale {
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.log.Warn("client buffer full, dropped", zap.String("client", c.id))
			}
		}
		h.mu.Unlock()
	}
	return sent, nil
}

func (h *Hub) deliver(msg Message) error {
	n, err := h.Broadcast(msg)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoClients
	}
	return nil
}

// NotifyTasksChanged tells open tabs to refetch the task list.
func (h *Hub) NotifyTasksChanged() {
	if _, err := h.Broadcast(Message{Type: TypeTasksChanged}); err != nil {
		h.log.Warn("tasks_changed broadcast failed", zap.Error(err))
	}
}

// --- scheduler.Platform ---

// Permission returns the last value reported by a tab.
func (h *Hub) Permission() scheduler.Permission {
	h.permMu.Lock()
	defer h.permMu.Unlock()
	return h.permission
}

// SetPermission records a value reported by the browser, persists it, and
// resolves any pending RequestPermission.
func (h *Hub) SetPermission(ctx context.Context, p scheduler.Permission) error {
	h.permMu.Lock()
	h.permission = p
	waiters := h.waiters
	h.waiters = nil
	cb := h.onPermission
	h.permMu.Unlock()

	for _, w := range waiters {
		w <- p
	}

	err := h.settings.SetSetting(ctx, store.SettingNotificationPermission, string(p))
	if err != nil {
		h.log.Warn("persist permission failed", zap.Error(err))
	}
	if cb != nil {
		cb(p)
	}
	return err
}

// RequestPermission asks the open tabs to prompt the user and waits for the
// first answer. Only the default state prompts.
func (h *Hub) RequestPermission(ctx context.Context) (scheduler.Permission, error) {
	if p := h.Permission(); p != scheduler.PermissionDefault {
		return p, nil
	}

	ch := make(chan scheduler.Permission, 1)
	h.permMu.Lock()
	h.waiters = append(h.waiters, ch)
	h.permMu.Unlock()

	if err := h.deliver(Message{Type: TypePermissionRequest}); err != nil {
		h.dropWaiter(ch)
		return scheduler.PermissionDefault, err
	}

	select {
	case p := <-ch:
		return p, nil
	case <-ctx.Done():
		h.dropWaiter(ch)
		return scheduler.PermissionDefault, ctx.Err()
	}
}

func (h *Hub) dropWaiter(ch chan scheduler.Permission) {
	h.permMu.Lock()
	defer h.permMu.Unlock()
	for i, w := range h.waiters {
		if w == ch {
			h.waiters = append(h.waiters[:i], h.waiters[i+1:]...)
			return
		}
	}
}

// Show pushes an alert to every tab.
func (h *Hub) Show(a scheduler.Alert) (scheduler.Handle, error) {
	if err := h.deliver(Message{Type: TypeNotification, Payload: a}); err != nil {
		return nil, err
	}
	return alertHandle{hub: h, id: a.ID, tag: a.Tag}, nil
}

type alertHandle struct {
	hub *Hub
	id  string
	tag string
}

func (ah alertHandle) Close() error {
	_, err := ah.hub.Broadcast(Message{Type: TypeNotificationClose, Payload: closePayload{ID: ah.id, Tag: ah.tag}})
	return err
}

// --- scheduler.Chime ---

// Play asks the tabs to synthesize the tone.
func (h *Hub) Play(t scheduler.Tone) error {
	return h.deliver(Message{Type: TypeChime, Payload: t})
}

func (h *Hub) handleInbound(c *Client, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.log.Debug("bad frame", zap.String("client", c.id), zap.Error(err))
		return
	}

	switch msg.Type {
	case TypePermission:
		var p permissionPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.log.Debug("bad permission frame", zap.Error(err))
			return
		}
		_ = h.SetPermission(context.Background(), scheduler.ParsePermission(p.State))

	case TypeNotificationEvent:
		var ev scheduler.AlertEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			h.log.Debug("bad notification_event frame", zap.Error(err))
			return
		}
		h.permMu.Lock()
		cb := h.onEvent
		h.permMu.Unlock()
		if cb != nil {
			cb(ev)
		}

	default:
		h.log.Debug("unknown frame type", zap.String("type", msg.Type), zap.String("client", c.id))
	}
}
