package history

import (
	"context"
	"time"
)

// Store is the append-only event log. Events are never updated or deleted.
// Every list method returns events in (timestamp, seq) order.
type Store interface {
	// Append writes a new event and returns it with Seq populated.
	Append(ctx context.Context, e Event) (Event, error)

	// ListForItem returns all events for one item.
	ListForItem(ctx context.Context, itemID string) ([]Event, error)

	// ListRange returns events with start <= timestamp < end.
	ListRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// List returns every event.
	List(ctx context.Context) ([]Event, error)

	// Count returns the number of events in the log.
	Count(ctx context.Context) (int64, error)
}
