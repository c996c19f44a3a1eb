package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/todo"
	"github.com/colonyops/wherewasi/internal/data/db"
)

// EventStore implements history.Store using SQLite. The table rejects
// updates and deletes, so the log can only grow.
type EventStore struct {
	q *db.Queries
}

var _ history.Store = (*EventStore)(nil)

// NewEventStore creates a new SQLite-backed event log.
func NewEventStore(database *db.DB) *EventStore {
	return &EventStore{q: database.Queries()}
}

// Append writes e and returns it with Seq set.
func (s *EventStore) Append(ctx context.Context, e history.Event) (history.Event, error) {
	if !e.Type.IsValid() {
		return history.Event{}, fmt.Errorf("append event: unknown type %q", e.Type)
	}

	seq, err := s.q.InsertHistoryEvent(ctx, db.InsertHistoryEventParams{
		ID:         e.ID,
		ItemID:     e.ItemID,
		EventType:  string(e.Type),
		FromStatus: fromStatusToNull(e.FromStatus),
		ToStatus:   string(e.ToStatus),
		Timestamp:  e.Timestamp.UnixNano(),
	})
	if err != nil {
		return history.Event{}, fmt.Errorf("append event: %w", err)
	}

	e.Seq = seq
	return e, nil
}

// ListForItem returns one item's events in log order.
func (s *EventStore) ListForItem(ctx context.Context, itemID string) ([]history.Event, error) {
	rows, err := s.q.ListHistoryEventsByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list events for item: %w", err)
	}
	return rowsToEvents(rows), nil
}

// ListRange returns events with start <= timestamp < end.
func (s *EventStore) ListRange(ctx context.Context, start, end time.Time) ([]history.Event, error) {
	rows, err := s.q.ListHistoryEventsBetween(ctx, db.ListHistoryEventsBetweenParams{
		Start: start.UnixNano(),
		End:   end.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("list events in range: %w", err)
	}
	return rowsToEvents(rows), nil
}

// List returns the entire log.
func (s *EventStore) List(ctx context.Context) ([]history.Event, error) {
	rows, err := s.q.ListHistoryEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return rowsToEvents(rows), nil
}

// Count returns the number of events.
func (s *EventStore) Count(ctx context.Context) (int64, error) {
	n, err := s.q.CountHistoryEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func rowsToEvents(rows []db.HistoryEvent) []history.Event {
	events := make([]history.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, history.Event{
			Seq:        row.Seq,
			ID:         row.ID,
			ItemID:     row.ItemID,
			Type:       history.EventType(row.EventType),
			FromStatus: nullToFromStatus(row.FromStatus),
			ToStatus:   todo.Status(row.ToStatus),
			Timestamp:  time.Unix(0, row.Timestamp),
		})
	}
	return events
}

func fromStatusToNull(s *todo.Status) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

func nullToFromStatus(ns sql.NullString) *todo.Status {
	if !ns.Valid {
		return nil
	}
	s := todo.Status(ns.String)
	return &s
}
