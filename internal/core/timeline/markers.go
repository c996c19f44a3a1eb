package timeline

import (
	"slices"
	"sort"

	"github.com/colonyops/wherewasi/internal/core/history"
)

// BuildMarkers emits one marker per completed or reopened event. A reopen
// dims the item's most recent completion that no earlier reopen has
// already dimmed. Reopen markers are never dimmed.
//
// The result is ordered by timestamp, most recent first.
func BuildMarkers(events []history.Event, titles TitleLookup) []Marker {
	sorted := chronological(events)

	markers := make([]Marker, 0)
	// pending maps item id to the index in markers of its undimmed completion.
	pending := make(map[string]int)

	for _, e := range sorted {
		switch e.Type {
		case history.EventCompleted:
			markers = append(markers, Marker{
				ItemID:    e.ItemID,
				ItemTitle: titleOf(titles, e.ItemID),
				Timestamp: e.Timestamp,
				EventType: history.EventCompleted,
			})
			pending[e.ItemID] = len(markers) - 1
		case history.EventReopened:
			if idx, ok := pending[e.ItemID]; ok {
				markers[idx].Dimmed = true
				delete(pending, e.ItemID)
			}
			markers = append(markers, Marker{
				ItemID:    e.ItemID,
				ItemTitle: titleOf(titles, e.ItemID),
				Timestamp: e.Timestamp,
				EventType: history.EventReopened,
			})
		}
	}

	slices.Reverse(markers)
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Timestamp.After(markers[j].Timestamp)
	})

	return markers
}
