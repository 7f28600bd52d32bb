package push

import "encoding/json"

// Message is a frame exchanged with browser tabs.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Server -> browser.
const (
	TypeWelcome           = "welcome"
	TypeNotification      = "notification"
	TypeNotificationClose = "notification_close"
	TypeChime             = "chime"
	TypePermissionRequest = "permission_request"
	TypeTasksChanged      = "tasks_changed"
)

// Browser -> server.
const (
	TypePermission        = "permission"
	TypeNotificationEvent = "notification_event"
)

type permissionPayload struct {
	State string `json:"state"`
}

type closePayload struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}
