// Package timeline reconstructs work intervals and completion markers from
// the history event log.
//
// Everything here is a pure function of its inputs: results are recomputed
// on every call, inputs are never mutated, and calls are safe from any
// number of goroutines.
package timeline

import (
	"sort"
	"time"

	"github.com/colonyops/wherewasi/internal/core/history"
)

// UnknownTitle is shown for items that no longer exist.
const UnknownTitle = "Unknown"

// EndReason explains how an interval ended.
type EndReason string

const (
	EndStopped   EndReason = "stopped"
	EndCompleted EndReason = "completed"
	EndOngoing   EndReason = "ongoing"
)

// Interval is one continuous stretch during which an item was active.
type Interval struct {
	ItemID    string     `json:"item_id"`
	ItemTitle string     `json:"item_title"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"` // nil while ongoing
	EndReason EndReason  `json:"end_reason"`
}

// Ongoing reports whether the interval is still open.
func (iv Interval) Ongoing() bool {
	return iv.EndTime == nil
}

// End returns the end time, or now for an ongoing interval.
func (iv Interval) End(now time.Time) time.Time {
	if iv.EndTime == nil {
		return now
	}
	return *iv.EndTime
}

// Duration returns the interval length, measuring ongoing intervals up to now.
func (iv Interval) Duration(now time.Time) time.Duration {
	d := iv.End(now).Sub(iv.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Marker is a point-in-time completion or reopen.
type Marker struct {
	ItemID    string            `json:"item_id"`
	ItemTitle string            `json:"item_title"`
	Timestamp time.Time         `json:"timestamp"`
	EventType history.EventType `json:"event_type"`
	// Dimmed is set on a completion that a later reopen of the same item undid.
	Dimmed bool `json:"dimmed"`
}

// TitleLookup resolves an item id to its current title.
type TitleLookup interface {
	Title(itemID string) (string, bool)
}

// Titles is a TitleLookup over a snapshot of the item store.
type Titles map[string]string

// Title implements TitleLookup.
func (t Titles) Title(itemID string) (string, bool) {
	title, ok := t[itemID]
	return title, ok
}

func titleOf(lookup TitleLookup, itemID string) string {
	if lookup == nil {
		return UnknownTitle
	}
	if title, ok := lookup.Title(itemID); ok {
		return title
	}
	return UnknownTitle
}

// chronological returns a copy of events sorted by timestamp. Equal
// timestamps keep their input order.
func chronological(events []history.Event) []history.Event {
	sorted := make([]history.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
