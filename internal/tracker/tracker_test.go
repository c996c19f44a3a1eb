package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/wherewasi/internal/core/eventbus"
	"github.com/colonyops/wherewasi/internal/core/eventbus/testbus"
	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/todo"
	"github.com/colonyops/wherewasi/internal/data/db"
	"github.com/colonyops/wherewasi/internal/data/stores"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	lifecycle *LifecycleService
	timeline  *TimelineService
	bus       *testbus.Bus
	clock     *fakeClock
	database  *db.DB
	items     *stores.ItemStore
	events    *stores.EventStore
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	strict bool
	wrap   func(Transactor) Transactor
}

func permissive() harnessOption {
	return func(c *harnessConfig) { c.strict = false }
}

func withTx(wrap func(Transactor) Transactor) harnessOption {
	return func(c *harnessConfig) { c.wrap = wrap }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{strict: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	var tx Transactor = stores.NewTxRunner(database)
	if cfg.wrap != nil {
		tx = cfg.wrap(tx)
	}

	clock := &fakeClock{t: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.Local)}
	items := stores.NewItemStore(database)
	events := stores.NewEventStore(database)
	tb := testbus.New(t)

	return &harness{
		lifecycle: NewLifecycleService(tx, items, events, tb.EventBus, zerolog.Nop(), LifecycleOptions{
			Strict: cfg.strict,
			Now:    clock.Now,
		}),
		timeline: NewTimelineService(tx, zerolog.Nop(), time.Monday, clock.Now),
		bus:      tb,
		clock:    clock,
		database: database,
		items:    items,
		events:   events,
	}
}

func (h *harness) create(t *testing.T, title string) todo.Item {
	t.Helper()
	item, err := h.lifecycle.Create(context.Background(), title)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	return item
}

func (h *harness) history(t *testing.T, id string) []history.Event {
	t.Helper()
	events, err := h.lifecycle.History(context.Background(), id)
	require.NoError(t, err)
	return events
}

func (h *harness) allEvents(t *testing.T) []history.Event {
	t.Helper()
	events, err := h.events.List(context.Background())
	require.NoError(t, err)
	return events
}

func types(events []history.Event) []history.EventType {
	out := make([]history.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestLifecycle_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("new item is pending with one created event", func(t *testing.T) {
		h := newHarness(t)
		createdAt := h.clock.Now()

		item, err := h.lifecycle.Create(ctx, "  Write report  ")
		require.NoError(t, err)

		assert.NotEmpty(t, item.ID)
		assert.Equal(t, "Write report", item.Title)
		assert.Equal(t, todo.StatusPending, item.Status)
		assert.True(t, item.CreatedAt.Equal(createdAt))
		assert.True(t, item.UpdatedAt.Equal(createdAt))

		events := h.history(t, item.ID)
		require.Len(t, events, 1)
		assert.Equal(t, history.EventCreated, events[0].Type)
		assert.Nil(t, events[0].FromStatus)
		assert.Equal(t, todo.StatusPending, events[0].ToStatus)
		assert.True(t, events[0].Timestamp.Equal(createdAt))

		h.bus.AssertPublished(t, eventbus.EventItemCreated)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.lifecycle.Create(ctx, "   ")
		assert.ErrorIs(t, err, todo.ErrEmptyTitle)
		assert.Empty(t, h.allEvents(t))
	})
}

func TestLifecycle_StartDemotesActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	a := h.create(t, "A")
	b := h.create(t, "B")

	_, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)

	switchAt := h.clock.Now()
	started, err := h.lifecycle.Start(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusInProgress, started.Status)

	gotA, err := h.lifecycle.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusPending, gotA.Status)
	assert.True(t, gotA.UpdatedAt.Equal(switchAt))

	aEvents := h.history(t, a.ID)
	assert.Equal(t, []history.EventType{history.EventCreated, history.EventStarted, history.EventStopped}, types(aEvents))
	stop := aEvents[2]
	require.NotNil(t, stop.FromStatus)
	assert.Equal(t, todo.StatusInProgress, *stop.FromStatus)
	assert.Equal(t, todo.StatusPending, stop.ToStatus)
	assert.True(t, stop.Timestamp.Equal(switchAt))

	bEvents := h.history(t, b.ID)
	assert.Equal(t, []history.EventType{history.EventCreated, history.EventStarted}, types(bEvents))
	assert.True(t, bEvents[1].Timestamp.Equal(switchAt))

	active, err := h.items.FindByStatus(ctx, todo.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	current, err := h.lifecycle.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, b.ID, current.ID)

	require.True(t, h.bus.WaitForCount(5, time.Second))
	var demoted *todo.Item
	for _, rec := range h.bus.Events() {
		if p, ok := rec.Payload.(eventbus.ItemStartedPayload); ok && p.Item.ID == b.ID {
			demoted = p.Demoted
		}
	}
	require.NotNil(t, demoted)
	assert.Equal(t, a.ID, demoted.ID)
}

func TestLifecycle_StartPublishesDemotion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	a := h.create(t, "A")
	b := h.create(t, "B")
	_, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, h.bus.WaitForCount(3, time.Second))
	h.bus.Reset()

	_, err = h.lifecycle.Start(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, h.bus.WaitForCount(2, time.Second))

	recorded := h.bus.Events()
	require.Len(t, recorded, 2)
	assert.Equal(t, eventbus.EventItemStopped, recorded[0].Event, "demotion is published before the start")
	assert.Equal(t, eventbus.EventItemStarted, recorded[1].Event)
}

func TestLifecycle_SelfStartIsNoop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	a := h.create(t, "A")
	first, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)

	before := h.allEvents(t)
	require.True(t, h.bus.WaitForCount(2, time.Second))
	h.bus.Reset()

	again, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)

	assert.Equal(t, todo.StatusInProgress, again.Status)
	assert.True(t, again.UpdatedAt.Equal(first.UpdatedAt), "no write happened")
	assert.Equal(t, before, h.allEvents(t))
	h.bus.AssertNotPublished(t, eventbus.EventItemStarted, 50*time.Millisecond)
	h.bus.AssertNotPublished(t, eventbus.EventItemStopped, 0)
}

func TestLifecycle_CompleteThenReopen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	a := h.create(t, "A")
	_, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)

	completed, err := h.lifecycle.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusCompleted, completed.Status)
	h.clock.Advance(time.Minute)

	reopened, err := h.lifecycle.Reopen(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusPending, reopened.Status)

	events := h.history(t, a.ID)
	assert.Equal(t, []history.EventType{
		history.EventCreated,
		history.EventStarted,
		history.EventCompleted,
		history.EventReopened,
	}, types(events))
	assert.Equal(t, todo.StatusInProgress, events[2].From())
	assert.Equal(t, todo.StatusCompleted, events[3].From())

	h.bus.AssertPublished(t, eventbus.EventItemCompleted)
	h.bus.AssertPublished(t, eventbus.EventItemReopened)
}

func TestLifecycle_CompleteFromPending(t *testing.T) {
	h := newHarness(t)
	a := h.create(t, "A")

	_, err := h.lifecycle.Complete(context.Background(), a.ID)
	require.NoError(t, err)

	events := h.history(t, a.ID)
	require.Len(t, events, 2)
	assert.Equal(t, todo.StatusPending, events[1].From())
}

func TestLifecycle_StrictRejectsInvalidTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, h *harness, id string)
		op    func(h *harness, id string) error
		from  todo.Status
	}{
		{
			name: "stop pending",
			op: func(h *harness, id string) error {
				_, err := h.lifecycle.Stop(ctx, id)
				return err
			},
			from: todo.StatusPending,
		},
		{
			name: "reopen pending",
			op: func(h *harness, id string) error {
				_, err := h.lifecycle.Reopen(ctx, id)
				return err
			},
			from: todo.StatusPending,
		},
		{
			name: "complete completed",
			setup: func(t *testing.T, h *harness, id string) {
				_, err := h.lifecycle.Complete(ctx, id)
				require.NoError(t, err)
			},
			op: func(h *harness, id string) error {
				_, err := h.lifecycle.Complete(ctx, id)
				return err
			},
			from: todo.StatusCompleted,
		},
		{
			name: "start completed",
			setup: func(t *testing.T, h *harness, id string) {
				_, err := h.lifecycle.Complete(ctx, id)
				require.NoError(t, err)
			},
			op: func(h *harness, id string) error {
				_, err := h.lifecycle.Start(ctx, id)
				return err
			},
			from: todo.StatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			item := h.create(t, "A")
			if tt.setup != nil {
				tt.setup(t, h, item.ID)
			}
			before := h.allEvents(t)

			err := tt.op(h, item.ID)
			require.ErrorIs(t, err, todo.ErrInvalidTransition)

			var terr *todo.TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, item.ID, terr.ItemID)
			assert.Equal(t, tt.from, terr.From)

			assert.Equal(t, before, h.allEvents(t), "rejected transition writes nothing")
		})
	}
}

func TestLifecycle_PermissiveAppliesWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, permissive())
	a := h.create(t, "A")

	stopped, err := h.lifecycle.Stop(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusPending, stopped.Status)

	_, err = h.lifecycle.Complete(ctx, a.ID)
	require.NoError(t, err)

	started, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusInProgress, started.Status)

	events := h.history(t, a.ID)
	require.Len(t, events, 4)
	assert.Equal(t, todo.StatusPending, events[1].From(), "stop records the real prior status")
	assert.Equal(t, todo.StatusCompleted, events[3].From())
}

func TestLifecycle_NotFound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ops := map[string]func() error{
		"start":    func() error { _, err := h.lifecycle.Start(ctx, "missing"); return err },
		"stop":     func() error { _, err := h.lifecycle.Stop(ctx, "missing"); return err },
		"complete": func() error { _, err := h.lifecycle.Complete(ctx, "missing"); return err },
		"reopen":   func() error { _, err := h.lifecycle.Reopen(ctx, "missing"); return err },
		"delete":   func() error { return h.lifecycle.Delete(ctx, "missing") },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, todo.ErrNotFound)
			assert.True(t, IsNotFound(err))
		})
	}

	assert.Empty(t, h.allEvents(t))
}

var errBoom = errors.New("boom")

type failingEvents struct {
	history.Store
	failOn history.EventType
}

func (f failingEvents) Append(ctx context.Context, e history.Event) (history.Event, error) {
	if e.Type == f.failOn {
		return history.Event{}, errBoom
	}
	return f.Store.Append(ctx, e)
}

type failingTx struct {
	inner  Transactor
	failOn *history.EventType
}

func (f failingTx) InTx(ctx context.Context, fn func(todo.Store, history.Store) error) error {
	return f.inner.InTx(ctx, func(items todo.Store, events history.Store) error {
		if *f.failOn != "" {
			events = failingEvents{Store: events, failOn: *f.failOn}
		}
		return fn(items, events)
	})
}

func TestLifecycle_StartRollsBackDemotion(t *testing.T) {
	ctx := context.Background()
	var failOn history.EventType
	h := newHarness(t, withTx(func(inner Transactor) Transactor {
		return failingTx{inner: inner, failOn: &failOn}
	}))

	a := h.create(t, "A")
	b := h.create(t, "B")
	_, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)
	before := h.allEvents(t)

	// The demotion of A succeeds inside the transaction; appending B's
	// started event fails and must undo it.
	failOn = history.EventStarted
	_, err = h.lifecycle.Start(ctx, b.ID)
	require.ErrorIs(t, err, errBoom)

	gotA, err := h.lifecycle.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusInProgress, gotA.Status)

	gotB, err := h.lifecycle.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, todo.StatusPending, gotB.Status)

	assert.Equal(t, before, h.allEvents(t))
}

func TestLifecycle_CreateRollsBack(t *testing.T) {
	failOn := history.EventCreated
	h := newHarness(t, withTx(func(inner Transactor) Transactor {
		return failingTx{inner: inner, failOn: &failOn}
	}))

	_, err := h.lifecycle.Create(context.Background(), "A")
	require.ErrorIs(t, err, errBoom)

	items, err := h.lifecycle.List(context.Background(), todo.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items, "item without its event must not be kept")
}

func TestLifecycle_LogIsAppendOnlyAndProjectionHolds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	a := h.create(t, "A")
	b := h.create(t, "B")
	c := h.create(t, "C")

	steps := []func() error{
		func() error { _, err := h.lifecycle.Start(ctx, a.ID); return err },
		func() error { _, err := h.lifecycle.Start(ctx, b.ID); return err },
		func() error { _, err := h.lifecycle.Complete(ctx, b.ID); return err },
		func() error { _, err := h.lifecycle.Start(ctx, c.ID); return err },
		func() error { _, err := h.lifecycle.Start(ctx, a.ID); return err },
		func() error { _, err := h.lifecycle.Reopen(ctx, b.ID); return err },
		func() error { _, err := h.lifecycle.Stop(ctx, a.ID); return err },
		func() error { _, err := h.lifecycle.Complete(ctx, c.ID); return err },
	}

	prev := h.allEvents(t)
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)

		// Some steps share a timestamp with the previous one.
		if i%2 == 0 {
			h.clock.Advance(time.Minute)
		}

		cur := h.allEvents(t)
		require.GreaterOrEqual(t, len(cur), len(prev))
		assert.Equal(t, prev, cur[:len(prev)], "existing events unchanged after step %d", i)
		prev = cur

		active, err := h.items.FindByStatus(ctx, todo.StatusInProgress)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(active), 1)

		drift, err := h.lifecycle.Verify(ctx)
		require.NoError(t, err)
		assert.Empty(t, drift, "status matches latest event after step %d", i)
	}
}

func TestLifecycle_VerifyReportsDrift(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.create(t, "A")

	a.Status = todo.StatusCompleted
	require.NoError(t, h.items.Update(ctx, a))

	drift, err := h.lifecycle.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, a.ID, drift[0].ItemID)
	assert.Equal(t, todo.StatusPending, drift[0].LastStatus)
}

func TestLifecycle_DeleteKeepsHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	a := h.create(t, "A")
	_, err := h.lifecycle.Start(ctx, a.ID)
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.lifecycle.Stop(ctx, a.ID)
	require.NoError(t, err)

	before := h.allEvents(t)
	require.NoError(t, h.lifecycle.Delete(ctx, a.ID))

	_, err = h.lifecycle.Get(ctx, a.ID)
	assert.ErrorIs(t, err, todo.ErrNotFound)
	assert.Equal(t, before, h.allEvents(t), "delete writes no event")
	assert.Len(t, h.history(t, a.ID), 3)

	intervals, err := h.timeline.Intervals(ctx)
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, "Unknown", intervals[0].ItemTitle)

	h.bus.AssertPublished(t, eventbus.EventItemDeleted)
}

func TestLifecycle_CurrentWhenIdle(t *testing.T) {
	h := newHarness(t)
	h.create(t, "A")

	current, err := h.lifecycle.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
}
