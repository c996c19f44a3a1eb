// Package eventbus provides a typed publish/subscribe event bus that fans
// out lifecycle changes to interested components.
package eventbus

import (
	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/todo"
)

// Event names a bus event.
type Event string

// Keep list sorted A-Z
const (
	EventItemCompleted Event = "item.completed"
	EventItemCreated   Event = "item.created"
	EventItemDeleted   Event = "item.deleted"
	EventItemReopened  Event = "item.reopened"
	EventItemStarted   Event = "item.started"
	EventItemStopped   Event = "item.stopped"
)

// AllEvents lists every event the bus can carry.
var AllEvents = []Event{
	EventItemCompleted,
	EventItemCreated,
	EventItemDeleted,
	EventItemReopened,
	EventItemStarted,
	EventItemStopped,
}

// ItemCreatedPayload is emitted after a new item is committed.
type ItemCreatedPayload struct {
	Item    todo.Item
	History history.Event
}

// ItemStartedPayload is emitted when an item becomes the active item.
// Demoted is set when starting it stopped another item.
type ItemStartedPayload struct {
	Item    todo.Item
	History history.Event
	Demoted *todo.Item
}

// ItemStoppedPayload is emitted when an item is paused, either directly or
// by another item being started.
type ItemStoppedPayload struct {
	Item    todo.Item
	History history.Event
}

// ItemCompletedPayload is emitted when an item is completed.
type ItemCompletedPayload struct {
	Item    todo.Item
	History history.Event
}

// ItemReopenedPayload is emitted when a completed item is reopened.
type ItemReopenedPayload struct {
	Item    todo.Item
	History history.Event
}

// ItemDeletedPayload is emitted when an item row is removed.
type ItemDeletedPayload struct {
	ItemID string
}
