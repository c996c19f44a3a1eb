package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger registers bus hooks that log all event activity at debug level.
// Uses OnPublish for event firing, OnDrop for buffer-full warnings, and OnPanic
// for subscriber panic reporting.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		logger.Debug().
			Str("event", string(event)).
			Str("item_id", ItemID(payload)).
			Msg("event fired")
	})

	bus.OnDrop(func(event Event, payload any) {
		logger.Warn().
			Str("event", string(event)).
			Str("item_id", ItemID(payload)).
			Msg("event dropped: buffer full")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}

// ItemID returns the id of the item a payload refers to, or "" for unknown
// payloads.
func ItemID(payload any) string {
	switch p := payload.(type) {
	case ItemCreatedPayload:
		return p.Item.ID
	case ItemStartedPayload:
		return p.Item.ID
	case ItemStoppedPayload:
		return p.Item.ID
	case ItemCompletedPayload:
		return p.Item.ID
	case ItemReopenedPayload:
		return p.Item.ID
	case ItemDeletedPayload:
		return p.ItemID
	default:
		return ""
	}
}
