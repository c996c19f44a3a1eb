package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/wherewasi/internal/core/eventbus"
	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/logging"
	"github.com/colonyops/wherewasi/internal/core/todo"
	"github.com/colonyops/wherewasi/pkg/randid"
)

// Transactor runs fn with item and event stores bound to one atomic unit.
// Either every write made through them lands or none does.
type Transactor interface {
	InTx(ctx context.Context, fn func(items todo.Store, events history.Store) error) error
}

// LifecycleOptions configures a LifecycleService.
type LifecycleOptions struct {
	// Strict rejects transitions that are not edges of the status machine.
	Strict bool
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// LifecycleService applies status transitions to items and records each one
// in the history log. At most one item is in progress at any time.
type LifecycleService struct {
	tx     Transactor
	items  todo.Store
	events history.Store
	bus    *eventbus.EventBus
	log    zerolog.Logger

	strict     bool
	now        func() time.Time
	newItemID  func() string
	newEventID func() string
}

// NewLifecycleService creates a LifecycleService. items and events are used
// for reads outside a transaction; all writes go through tx.
func NewLifecycleService(
	tx Transactor,
	items todo.Store,
	events history.Store,
	bus *eventbus.EventBus,
	log zerolog.Logger,
	opts LifecycleOptions,
) *LifecycleService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LifecycleService{
		tx:         tx,
		items:      items,
		events:     events,
		bus:        bus,
		log:        logging.Component(log, "lifecycle"),
		strict:     opts.Strict,
		now:        now,
		newItemID:  func() string { return randid.Generate(8) },
		newEventID: func() string { return uuid.NewString() },
	}
}

// Strict reports whether invalid transitions are rejected.
func (s *LifecycleService) Strict() bool {
	return s.strict
}

// Create adds a pending item and records its created event.
func (s *LifecycleService) Create(ctx context.Context, title string) (todo.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return todo.Item{}, todo.ErrEmptyTitle
	}

	now := s.now()
	item := todo.Item{
		ID:        s.newItemID(),
		Title:     title,
		Status:    todo.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var created history.Event
	err := s.tx.InTx(ctx, func(items todo.Store, events history.Store) error {
		if err := items.Create(ctx, item); err != nil {
			return err
		}
		var err error
		created, err = events.Append(ctx, history.Event{
			ID:        s.newEventID(),
			ItemID:    item.ID,
			Type:      history.EventCreated,
			ToStatus:  todo.StatusPending,
			Timestamp: now,
		})
		return err
	})
	if err != nil {
		return todo.Item{}, fmt.Errorf("create item: %w", err)
	}

	ctx = logging.WithOp(logging.WithItemID(ctx, item.ID), "create")
	s.log.Debug().Ctx(ctx).Str("title", item.Title).Msg("item created")

	s.bus.PublishItemCreated(eventbus.ItemCreatedPayload{Item: item, History: created})

	return item, nil
}

// Start makes id the active item. Whichever other item was in progress is
// stopped first, in the same transaction and at the same instant. Starting
// the item that is already active changes nothing.
func (s *LifecycleService) Start(ctx context.Context, id string) (todo.Item, error) {
	ctx = logging.WithOp(logging.WithItemID(ctx, id), "start")
	now := s.now()

	type demotion struct {
		item  todo.Item
		event history.Event
	}

	var (
		result   todo.Item
		started  history.Event
		demoted  []demotion
		selfNoop bool
	)

	err := s.tx.InTx(ctx, func(items todo.Store, events history.Store) error {
		target, err := items.Get(ctx, id)
		if err != nil {
			return err
		}

		if target.Status == todo.StatusInProgress {
			result = target
			selfNoop = true
			return nil
		}

		if s.strict && target.Status != todo.StatusPending {
			return &todo.TransitionError{ItemID: id, Op: "start", From: target.Status}
		}

		active, err := items.FindByStatus(ctx, todo.StatusInProgress)
		if err != nil {
			return err
		}
		for _, other := range active {
			item, ev, err := s.transition(ctx, items, events, other, todo.StatusPending, history.EventStopped, now)
			if err != nil {
				return fmt.Errorf("stop %s: %w", other.ID, err)
			}
			demoted = append(demoted, demotion{item: item, event: ev})
		}

		result, started, err = s.transition(ctx, items, events, target, todo.StatusInProgress, history.EventStarted, now)
		return err
	})
	if err != nil {
		return todo.Item{}, fmt.Errorf("start item %s: %w", id, err)
	}

	if selfNoop {
		s.log.Debug().Ctx(ctx).Msg("item already in progress")
		return result, nil
	}

	var demotedItem *todo.Item
	for _, d := range demoted {
		s.log.Debug().Ctx(ctx).Str("demoted_id", d.item.ID).Msg("stopped previously active item")
		s.bus.PublishItemStopped(eventbus.ItemStoppedPayload{Item: d.item, History: d.event})
		demotedItem = &d.item
	}

	s.log.Debug().Ctx(ctx).
		Str("from", string(started.From())).
		Str("to", string(started.ToStatus)).
		Msg("item started")
	s.bus.PublishItemStarted(eventbus.ItemStartedPayload{Item: result, History: started, Demoted: demotedItem})

	return result, nil
}

// Stop returns the item to pending.
func (s *LifecycleService) Stop(ctx context.Context, id string) (todo.Item, error) {
	item, ev, err := s.apply(ctx, id, "stop", todo.StatusPending, history.EventStopped, todo.StatusInProgress)
	if err != nil {
		return todo.Item{}, err
	}
	s.bus.PublishItemStopped(eventbus.ItemStoppedPayload{Item: item, History: ev})
	return item, nil
}

// Complete marks the item completed.
func (s *LifecycleService) Complete(ctx context.Context, id string) (todo.Item, error) {
	item, ev, err := s.apply(ctx, id, "complete", todo.StatusCompleted, history.EventCompleted,
		todo.StatusPending, todo.StatusInProgress)
	if err != nil {
		return todo.Item{}, err
	}
	s.bus.PublishItemCompleted(eventbus.ItemCompletedPayload{Item: item, History: ev})
	return item, nil
}

// Reopen returns a completed item to pending.
func (s *LifecycleService) Reopen(ctx context.Context, id string) (todo.Item, error) {
	item, ev, err := s.apply(ctx, id, "reopen", todo.StatusPending, history.EventReopened, todo.StatusCompleted)
	if err != nil {
		return todo.Item{}, err
	}
	s.bus.PublishItemReopened(eventbus.ItemReopenedPayload{Item: item, History: ev})
	return item, nil
}

// apply moves a single item to status `to`. In strict mode the item must
// currently be in one of allowed.
func (s *LifecycleService) apply(
	ctx context.Context,
	id, op string,
	to todo.Status,
	eventType history.EventType,
	allowed ...todo.Status,
) (todo.Item, history.Event, error) {
	ctx = logging.WithOp(logging.WithItemID(ctx, id), op)
	now := s.now()

	var (
		item todo.Item
		ev   history.Event
	)
	err := s.tx.InTx(ctx, func(items todo.Store, events history.Store) error {
		current, err := items.Get(ctx, id)
		if err != nil {
			return err
		}
		if s.strict && !slices.Contains(allowed, current.Status) {
			return &todo.TransitionError{ItemID: id, Op: op, From: current.Status}
		}
		item, ev, err = s.transition(ctx, items, events, current, to, eventType, now)
		return err
	})
	if err != nil {
		return todo.Item{}, history.Event{}, fmt.Errorf("%s item %s: %w", op, id, err)
	}

	s.log.Debug().Ctx(ctx).
		Str("from", string(ev.From())).
		Str("to", string(ev.ToStatus)).
		Msg("item transitioned")

	return item, ev, nil
}

// transition writes the status change and its event through the
// transaction's stores.
func (s *LifecycleService) transition(
	ctx context.Context,
	items todo.Store,
	events history.Store,
	item todo.Item,
	to todo.Status,
	eventType history.EventType,
	now time.Time,
) (todo.Item, history.Event, error) {
	from := item.Status
	item.Status = to
	item.UpdatedAt = now

	if err := items.Update(ctx, item); err != nil {
		return todo.Item{}, history.Event{}, err
	}

	ev, err := events.Append(ctx, history.Event{
		ID:         s.newEventID(),
		ItemID:     item.ID,
		Type:       eventType,
		FromStatus: &from,
		ToStatus:   to,
		Timestamp:  now,
	})
	if err != nil {
		return todo.Item{}, history.Event{}, err
	}

	return item, ev, nil
}

// Delete removes the item. Its history is kept and no event is written.
func (s *LifecycleService) Delete(ctx context.Context, id string) error {
	ctx = logging.WithOp(logging.WithItemID(ctx, id), "delete")

	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}

	s.log.Debug().Ctx(ctx).Msg("item deleted")
	s.bus.PublishItemDeleted(eventbus.ItemDeletedPayload{ItemID: id})
	return nil
}

// Current returns the in-progress item, or nil when nothing is active.
func (s *LifecycleService) Current(ctx context.Context) (*todo.Item, error) {
	active, err := s.items.FindByStatus(ctx, todo.StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("find active item: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}
	if len(active) > 1 {
		s.log.Warn().Int("count", len(active)).Msg("more than one item in progress")
	}
	return &active[0], nil
}

// Get returns one item.
func (s *LifecycleService) Get(ctx context.Context, id string) (todo.Item, error) {
	return s.items.Get(ctx, id)
}

// List returns items matching filter.
func (s *LifecycleService) List(ctx context.Context, filter todo.ListFilter) ([]todo.Item, error) {
	return s.items.List(ctx, filter)
}

// History returns the events recorded for id in log order. The item itself
// may no longer exist.
func (s *LifecycleService) History(ctx context.Context, id string) ([]history.Event, error) {
	events, err := s.events.ListForItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("item history %s: %w", id, err)
	}
	return events, nil
}

// Drift describes an item whose status disagrees with its latest event.
type Drift struct {
	ItemID     string      `json:"item_id"`
	Status     todo.Status `json:"status"`
	LastStatus todo.Status `json:"last_event_status"` // empty when the item has no events
}

// Verify checks that every item's status equals the to_status of its most
// recent event, reading both in one transaction.
func (s *LifecycleService) Verify(ctx context.Context) ([]Drift, error) {
	var (
		items []todo.Item
		evs   []history.Event
	)
	err := s.tx.InTx(ctx, func(is todo.Store, es history.Store) error {
		var err error
		if items, err = is.List(ctx, todo.ListFilter{}); err != nil {
			return err
		}
		evs, err = es.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	// evs is in (timestamp, seq) order, so the last write per item wins.
	latest := make(map[string]todo.Status, len(items))
	for _, e := range evs {
		latest[e.ItemID] = e.ToStatus
	}

	var drift []Drift
	for _, item := range items {
		last, ok := latest[item.ID]
		if !ok || last != item.Status {
			drift = append(drift, Drift{ItemID: item.ID, Status: item.Status, LastStatus: last})
		}
	}
	return drift, nil
}

// IsNotFound reports whether err means the item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, todo.ErrNotFound)
}
