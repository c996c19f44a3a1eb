package timeline

import (
	"slices"
	"sort"

	"github.com/colonyops/wherewasi/internal/core/history"
)

// BuildIntervals pairs each started event with the next stopped or completed
// event for the same item. A second start for an item before it is closed
// replaces the first. Starts that are never closed yield ongoing intervals.
//
// The result is ordered by start time, most recent first.
func BuildIntervals(events []history.Event, titles TitleLookup) []Interval {
	sorted := chronological(events)

	// open maps item id to the index in sorted of its unclosed start.
	open := make(map[string]int)
	intervals := make([]Interval, 0, len(sorted)/2)

	for i, e := range sorted {
		switch e.Type {
		case history.EventStarted:
			open[e.ItemID] = i
		case history.EventStopped, history.EventCompleted:
			startIdx, ok := open[e.ItemID]
			if !ok {
				continue
			}
			delete(open, e.ItemID)

			end := e.Timestamp
			reason := EndStopped
			if e.Type == history.EventCompleted {
				reason = EndCompleted
			}
			intervals = append(intervals, Interval{
				ItemID:    e.ItemID,
				ItemTitle: titleOf(titles, e.ItemID),
				StartTime: sorted[startIdx].Timestamp,
				EndTime:   &end,
				EndReason: reason,
			})
		}
	}

	// Map iteration order is random; emit dangling starts in log order.
	dangling := make([]int, 0, len(open))
	for _, idx := range open {
		dangling = append(dangling, idx)
	}
	slices.Sort(dangling)

	for _, idx := range dangling {
		start := sorted[idx]
		intervals = append(intervals, Interval{
			ItemID:    start.ItemID,
			ItemTitle: titleOf(titles, start.ItemID),
			StartTime: start.Timestamp,
			EndReason: EndOngoing,
		})
	}

	// Most recent first; ties keep the later-emitted interval first.
	slices.Reverse(intervals)
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].StartTime.After(intervals[j].StartTime)
	})

	return intervals
}
