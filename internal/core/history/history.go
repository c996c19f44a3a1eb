// Package history defines the append-only log of item status transitions.
package history

import (
	"time"

	"github.com/colonyops/wherewasi/internal/core/todo"
)

// EventType names a status transition.
type EventType string

const (
	EventCreated   EventType = "created"
	EventStarted   EventType = "started"
	EventStopped   EventType = "stopped"
	EventCompleted EventType = "completed"
	EventReopened  EventType = "reopened"
)

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	switch t {
	case EventCreated, EventStarted, EventStopped, EventCompleted, EventReopened:
		return true
	default:
		return false
	}
}

// Event is an immutable record of one status transition. ItemID is a weak
// reference: the item may be deleted while its events remain.
type Event struct {
	// Seq is the store-assigned insertion sequence. Zero until appended.
	Seq        int64        `json:"seq"`
	ID         string       `json:"id"`
	ItemID     string       `json:"item_id"`
	Type       EventType    `json:"event_type"`
	FromStatus *todo.Status `json:"from_status"` // nil only for EventCreated
	ToStatus   todo.Status  `json:"to_status"`
	Timestamp  time.Time    `json:"timestamp"`
}

// From returns the previous status, or the empty status for created events.
func (e Event) From() todo.Status {
	if e.FromStatus == nil {
		return ""
	}
	return *e.FromStatus
}
