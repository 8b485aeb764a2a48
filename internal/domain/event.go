package domain

import "time"

type EventKind string

const (
	EventStatusChanged      EventKind = "status_changed"
	EventConnected          EventKind = "connected"
	EventDisconnected       EventKind = "disconnected"
	EventTaskStarted        EventKind = "task_started"
	EventTaskCompleted      EventKind = "task_completed"
	EventTaskFailed         EventKind = "task_failed"
	EventQuotaWarning       EventKind = "quota_warning"
	EventQuotaExceeded      EventKind = "quota_exceeded"
	EventQuotaReset         EventKind = "quota_reset"
	EventSessionStarted     EventKind = "session_started"
	EventSessionEnded       EventKind = "session_ended"
	EventRebooting          EventKind = "rebooting"
	EventError              EventKind = "error"
	EventEmergencyActivated EventKind = "emergency_activated"
	EventPrestartTriggered  EventKind = "prestart_triggered"
	EventSwitchRequired     EventKind = "switch_required"
	EventAccountRotated     EventKind = "account_rotated"
	EventPoolExhausted      EventKind = "pool_exhausted"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is an append-only pool history record. Events are never mutated after
// emission; observers receive copies.
type Event struct {
	AccountID   AccountID
	AccountName string
	Kind        EventKind
	Message     string
	Time        time.Time
	Severity    Severity
}
