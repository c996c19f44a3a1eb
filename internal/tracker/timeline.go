package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/logging"
	"github.com/colonyops/wherewasi/internal/core/timeline"
	"github.com/colonyops/wherewasi/internal/core/todo"
)

// Snapshot is the full reconstructed timeline at one instant.
type Snapshot struct {
	Intervals []timeline.Interval `json:"intervals"`
	Markers   []timeline.Marker   `json:"markers"`
	TakenAt   time.Time           `json:"taken_at"`

	events []history.Event
	titles timeline.Titles
}

// TimelineService reads the history log and current titles and hands them
// to the timeline reconstructor. Nothing is cached between calls.
type TimelineService struct {
	tx        Transactor
	log       zerolog.Logger
	now       func() time.Time
	weekStart time.Weekday
}

// NewTimelineService creates a TimelineService.
func NewTimelineService(tx Transactor, log zerolog.Logger, weekStart time.Weekday, now func() time.Time) *TimelineService {
	if now == nil {
		now = time.Now
	}
	return &TimelineService{
		tx:        tx,
		log:       logging.Component(log, "timeline"),
		now:       now,
		weekStart: weekStart,
	}
}

// Snapshot loads every event and the current titles in one read and
// reconstructs intervals and markers from them.
func (s *TimelineService) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		events []history.Event
		items  []todo.Item
	)
	err := s.tx.InTx(ctx, func(is todo.Store, es history.Store) error {
		var err error
		if events, err = es.List(ctx); err != nil {
			return err
		}
		items, err = is.List(ctx, todo.ListFilter{})
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("load timeline: %w", err)
	}

	titles := timeline.Titles(todo.Titles(items))
	snap := Snapshot{
		Intervals: timeline.BuildIntervals(events, titles),
		Markers:   timeline.BuildMarkers(events, titles),
		TakenAt:   s.now(),
		events:    events,
		titles:    titles,
	}

	s.log.Debug().
		Int("events", len(events)).
		Int("intervals", len(snap.Intervals)).
		Int("markers", len(snap.Markers)).
		Msg("timeline reconstructed")

	return snap, nil
}

// Intervals returns all reconstructed intervals, most recent first.
func (s *TimelineService) Intervals(ctx context.Context) ([]timeline.Interval, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Intervals, nil
}

// Markers returns all reconstructed markers, most recent first.
func (s *TimelineService) Markers(ctx context.Context) ([]timeline.Marker, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Markers, nil
}

// View returns the timeline narrowed to r. Reconstruction always runs over
// the full log, so intervals that began before r are still paired.
func (s *TimelineService) View(ctx context.Context, r timeline.DateRange) (timeline.View, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return timeline.View{}, err
	}
	return timeline.BuildView(snap.events, snap.titles, r, snap.TakenAt), nil
}

// Day returns the view for the calendar day containing t.
func (s *TimelineService) Day(ctx context.Context, t time.Time) (timeline.View, error) {
	return s.View(ctx, timeline.Day(t))
}

// Week returns the view for the configured week containing t.
func (s *TimelineService) Week(ctx context.Context, t time.Time) (timeline.View, error) {
	return s.View(ctx, timeline.Week(t, s.weekStart))
}
