package tracker

import (
	"github.com/rs/zerolog"

	"github.com/colonyops/wherewasi/internal/core/eventbus"
)

// RegisterActivityLog records what the user worked on at info level, so the
// log file reads as a plain account of switches and completions.
func RegisterActivityLog(bus *eventbus.EventBus, log zerolog.Logger) {
	bus.SubscribeItemStarted(func(p eventbus.ItemStartedPayload) {
		if p.Demoted == nil {
			log.Info().Str("item_id", p.Item.ID).Str("title", p.Item.Title).Msg("started item")
			return
		}
		log.Info().
			Str("from_id", p.Demoted.ID).
			Str("from_title", p.Demoted.Title).
			Str("to_id", p.Item.ID).
			Str("to_title", p.Item.Title).
			Msg("switched items")
	})

	bus.SubscribeItemCompleted(func(p eventbus.ItemCompletedPayload) {
		log.Info().Str("item_id", p.Item.ID).Str("title", p.Item.Title).Msg("completed item")
	})

	bus.SubscribeItemReopened(func(p eventbus.ItemReopenedPayload) {
		log.Info().Str("item_id", p.Item.ID).Str("title", p.Item.Title).Msg("reopened item")
	})
}
