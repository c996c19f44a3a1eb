package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/todo"
)

var base = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func ev(itemID string, typ history.EventType, ts time.Time) history.Event {
	return history.Event{ItemID: itemID, Type: typ, ToStatus: todo.StatusPending, Timestamp: ts}
}

func TestBuildIntervals(t *testing.T) {
	titles := Titles{"a": "Write report", "b": "Review PR"}

	t.Run("start then stop yields one stopped interval", func(t *testing.T) {
		got := BuildIntervals([]history.Event{
			ev("a", history.EventStarted, at(9, 0)),
			ev("a", history.EventStopped, at(10, 0)),
		}, titles)

		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ItemID)
		assert.Equal(t, "Write report", got[0].ItemTitle)
		assert.True(t, got[0].StartTime.Equal(at(9, 0)))
		require.NotNil(t, got[0].EndTime)
		assert.True(t, got[0].EndTime.Equal(at(10, 0)))
		assert.Equal(t, EndStopped, got[0].EndReason)
	})

	t.Run("dangling start yields ongoing interval", func(t *testing.T) {
		got := BuildIntervals([]history.Event{
			ev("a", history.EventStarted, at(9, 0)),
		}, titles)

		require.Len(t, got, 1)
		assert.Nil(t, got[0].EndTime)
		assert.True(t, got[0].Ongoing())
		assert.Equal(t, EndOngoing, got[0].EndReason)
	})

	t.Run("completion closes with completed reason", func(t *testing.T) {
		got := BuildIntervals([]history.Event{
			ev("a", history.EventStarted, at(9, 0)),
			ev("a", history.EventCompleted, at(9, 30)),
		}, titles)

		require.Len(t, got, 1)
		assert.Equal(t, EndCompleted, got[0].EndReason)
	})

	t.Run("second start overwrites open start", func(t *testing.T) {
		got := BuildIntervals([]history.Event{
			ev("a", history.EventStarted, at(9, 0)),
			ev("a", history.EventStarted, at(9, 15)),
			ev("a", history.EventStopped, at(10, 0)),
		}, titles)

		require.Len(t, got, 1)
		assert.True(t, got[0].StartTime.Equal(at(9, 15)))
	})

	t.Run("stop without start is ignored", func(t *testing.T) {
		got := BuildIntervals([]history.Event{
			ev("a", history.EventCreated, at(8, 0)),
			ev("a", history.EventStopped, at(9, 0)),
			ev("a", history.EventReopened, at(9, 30)),
		}, titles)

		assert.Empty(t, got)
	})

	t.Run("unsorted input is sorted and output is most recent first", func(t *testing.T) {
		got := BuildIntervals([]history.Event{
			ev("b", history.EventStopped, at(12, 0)),
			ev("a", history.EventStarted, at(9, 0)),
			ev("b", history.EventStarted, at(11, 0)),
			ev("a", history.EventStopped, at(10, 0)),
			ev("a", history.EventStarted, at(13, 0)),
		}, titles)

		require.Len(t, got, 3)
		assert.True(t, got[0].StartTime.Equal(at(13, 0)))
		assert.Equal(t, EndOngoing, got[0].EndReason)
		assert.Equal(t, "b", got[1].ItemID)
		assert.Equal(t, "a", got[2].ItemID)
	})

	t.Run("demotion at same instant pairs by input order", func(t *testing.T) {
		// start(b) demotes a: both events share one timestamp.
		got := BuildIntervals([]history.Event{
			ev("a", history.EventStarted, at(9, 0)),
			ev("a", history.EventStopped, at(10, 0)),
			ev("b", history.EventStarted, at(10, 0)),
		}, titles)

		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ItemID)
		assert.Equal(t, EndOngoing, got[0].EndReason)
		assert.Equal(t, "a", got[1].ItemID)
		assert.True(t, got[1].EndTime.Equal(at(10, 0)))
	})

	t.Run("missing title falls back to unknown", func(t *testing.T) {
		got := BuildIntervals([]history.Event{
			ev("gone", history.EventStarted, at(9, 0)),
		}, titles)

		require.Len(t, got, 1)
		assert.Equal(t, UnknownTitle, got[0].ItemTitle)

		got = BuildIntervals([]history.Event{ev("a", history.EventStarted, at(9, 0))}, nil)
		assert.Equal(t, UnknownTitle, got[0].ItemTitle)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, BuildIntervals(nil, titles))
	})
}

func TestBuildMarkers(t *testing.T) {
	titles := Titles{"a": "Write report"}

	t.Run("reopen dims prior completion", func(t *testing.T) {
		got := BuildMarkers([]history.Event{
			ev("a", history.EventCompleted, at(10, 0)),
			ev("a", history.EventReopened, at(11, 0)),
		}, titles)

		require.Len(t, got, 2)
		assert.Equal(t, history.EventReopened, got[0].EventType)
		assert.True(t, got[0].Timestamp.Equal(at(11, 0)))
		assert.False(t, got[0].Dimmed)
		assert.Equal(t, history.EventCompleted, got[1].EventType)
		assert.True(t, got[1].Timestamp.Equal(at(10, 0)))
		assert.True(t, got[1].Dimmed)
	})

	t.Run("reopen only dims the latest pending completion", func(t *testing.T) {
		got := BuildMarkers([]history.Event{
			ev("a", history.EventCompleted, at(9, 0)),
			ev("a", history.EventReopened, at(10, 0)),
			ev("a", history.EventCompleted, at(11, 0)),
		}, titles)

		require.Len(t, got, 3)
		assert.False(t, got[0].Dimmed, "final completion stands")
		assert.False(t, got[1].Dimmed, "reopen is never dimmed")
		assert.True(t, got[2].Dimmed)
	})

	t.Run("reopen without completion still emits marker", func(t *testing.T) {
		got := BuildMarkers([]history.Event{
			ev("a", history.EventReopened, at(9, 0)),
		}, titles)

		require.Len(t, got, 1)
		assert.False(t, got[0].Dimmed)
	})

	t.Run("dimming is per item", func(t *testing.T) {
		got := BuildMarkers([]history.Event{
			ev("a", history.EventCompleted, at(9, 0)),
			ev("b", history.EventReopened, at(10, 0)),
		}, titles)

		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ItemID)
		assert.Equal(t, UnknownTitle, got[0].ItemTitle)
		assert.False(t, got[1].Dimmed)
	})

	t.Run("other event types are filtered out", func(t *testing.T) {
		got := BuildMarkers([]history.Event{
			ev("a", history.EventCreated, at(8, 0)),
			ev("a", history.EventStarted, at(9, 0)),
			ev("a", history.EventStopped, at(10, 0)),
		}, titles)

		assert.Empty(t, got)
	})
}

func TestReconstructionIsPure(t *testing.T) {
	events := []history.Event{
		ev("a", history.EventCompleted, at(10, 0)),
		ev("a", history.EventStarted, at(9, 0)),
		ev("a", history.EventReopened, at(11, 0)),
		ev("b", history.EventStarted, at(11, 0)),
	}
	snapshot := make([]history.Event, len(events))
	copy(snapshot, events)

	titles := Titles{"a": "A", "b": "B"}

	iv1 := BuildIntervals(events, titles)
	iv2 := BuildIntervals(events, titles)
	assert.Equal(t, iv1, iv2)

	m1 := BuildMarkers(events, titles)
	m2 := BuildMarkers(events, titles)
	assert.Equal(t, m1, m2)

	assert.Equal(t, snapshot, events, "input must not be mutated")
}

func TestDateRanges(t *testing.T) {
	loc := time.FixedZone("test", -5*60*60)
	ts := time.Date(2026, time.March, 12, 15, 4, 0, 0, loc) // Thursday

	t.Run("day", func(t *testing.T) {
		r := Day(ts)
		assert.Equal(t, time.Date(2026, time.March, 12, 0, 0, 0, 0, loc), r.Start)
		assert.Equal(t, time.Date(2026, time.March, 13, 0, 0, 0, 0, loc), r.End)
		assert.True(t, r.Contains(r.Start))
		assert.False(t, r.Contains(r.End))
	})

	t.Run("week starting monday", func(t *testing.T) {
		r := Week(ts, time.Monday)
		assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, loc), r.Start)
		assert.Equal(t, time.Date(2026, time.March, 16, 0, 0, 0, 0, loc), r.End)
	})

	t.Run("week starting sunday", func(t *testing.T) {
		r := Week(ts, time.Sunday)
		assert.Equal(t, time.Date(2026, time.March, 8, 0, 0, 0, 0, loc), r.Start)
	})

	t.Run("week when t is the start day", func(t *testing.T) {
		monday := time.Date(2026, time.March, 9, 8, 0, 0, 0, loc)
		assert.Equal(t, time.Date(2026, time.March, 9, 0, 0, 0, 0, loc), Week(monday, time.Monday).Start)
	})
}

func TestIntervalsIn(t *testing.T) {
	day := Day(at(12, 0))
	now := at(23, 0)

	end := func(ts time.Time) *time.Time { return &ts }

	intervals := []Interval{
		{ItemID: "inside", StartTime: at(9, 0), EndTime: end(at(10, 0))},
		{ItemID: "before", StartTime: at(-5, 0), EndTime: end(at(-4, 0))},
		{ItemID: "overnight", StartTime: at(-2, 0), EndTime: end(at(1, 0))},
		{ItemID: "spans", StartTime: at(-2, 0), EndTime: end(at(30, 0))},
		{ItemID: "after", StartTime: at(25, 0), EndTime: end(at(26, 0))},
		{ItemID: "ongoing", StartTime: at(-1, 0), EndReason: EndOngoing},
		{ItemID: "ends-at-midnight", StartTime: at(-2, 0), EndTime: end(at(0, 0))},
		{ItemID: "starts-at-next-midnight", StartTime: at(24, 0), EndTime: end(at(25, 0))},
		{ItemID: "starts-at-midnight", StartTime: at(0, 0), EndTime: end(at(0, 30))},
		{ItemID: "instant-at-midnight", StartTime: at(0, 0), EndTime: end(at(0, 0))},
	}

	got := IntervalsIn(intervals, day, now)

	ids := make([]string, 0, len(got))
	for _, iv := range got {
		ids = append(ids, iv.ItemID)
	}
	assert.Equal(t, []string{"inside", "overnight", "spans", "ongoing", "starts-at-midnight", "instant-at-midnight"}, ids)
}

func TestMarkersIn(t *testing.T) {
	day := Day(at(12, 0))
	got := MarkersIn([]Marker{
		{ItemID: "a", Timestamp: at(24, 0)},
		{ItemID: "b", Timestamp: at(12, 0)},
		{ItemID: "c", Timestamp: at(0, 0)},
		{ItemID: "d", Timestamp: at(-1, 0)},
	}, day)

	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ItemID)
	assert.Equal(t, "c", got[1].ItemID)
}

func TestSummarize(t *testing.T) {
	day := Day(at(12, 0))
	now := at(14, 0)
	end := func(ts time.Time) *time.Time { return &ts }

	totals := Summarize([]Interval{
		{ItemID: "a", ItemTitle: "A", StartTime: at(9, 0), EndTime: end(at(10, 0))},
		{ItemID: "b", ItemTitle: "B", StartTime: at(-1, 0), EndTime: end(at(1, 0))},
		{ItemID: "a", ItemTitle: "A", StartTime: at(11, 0), EndTime: end(at(11, 30))},
		{ItemID: "c", ItemTitle: "C", StartTime: at(13, 0)},
	}, day, now)

	require.Len(t, totals, 3)
	assert.Equal(t, "a", totals[0].ItemID)
	assert.Equal(t, 90*time.Minute, totals[0].Duration)
	assert.Equal(t, 2, totals[0].Intervals)

	// b and c tie on one hour; id breaks the tie.
	assert.Equal(t, "b", totals[1].ItemID)
	assert.Equal(t, time.Hour, totals[1].Duration)
	assert.Equal(t, "c", totals[2].ItemID)
	assert.Equal(t, time.Hour, totals[2].Duration)
}

func TestBuildView(t *testing.T) {
	events := []history.Event{
		ev("a", history.EventStarted, at(-3, 0)),
		ev("a", history.EventStopped, at(-2, 0)),
		ev("a", history.EventStarted, at(9, 0)),
		ev("a", history.EventCompleted, at(10, 0)),
		ev("a", history.EventReopened, at(11, 0)),
	}

	v := BuildView(events, Titles{"a": "A"}, Day(at(12, 0)), at(12, 0))

	require.Len(t, v.Intervals, 1)
	assert.Equal(t, EndCompleted, v.Intervals[0].EndReason)
	require.Len(t, v.Markers, 2)
	assert.True(t, v.Markers[1].Dimmed)
	require.Len(t, v.Totals, 1)
	assert.Equal(t, time.Hour, v.Totals[0].Duration)
}

func TestIntervalDuration(t *testing.T) {
	iv := Interval{StartTime: at(9, 0)}
	assert.Equal(t, 3*time.Hour, iv.Duration(at(12, 0)))
	assert.Equal(t, time.Duration(0), iv.Duration(at(8, 0)))
}
