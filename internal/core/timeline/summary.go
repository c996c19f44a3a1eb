package timeline

import (
	"sort"
	"time"

	"github.com/colonyops/wherewasi/internal/core/history"
)

// ItemTotal is the active time attributed to one item within a range.
type ItemTotal struct {
	ItemID    string        `json:"item_id"`
	ItemTitle string        `json:"item_title"`
	Duration  time.Duration `json:"duration"`
	Intervals int           `json:"intervals"`
}

// Summarize clips each interval to r and totals the result per item. Items
// are ordered by total duration descending, then by id.
func Summarize(intervals []Interval, r DateRange, now time.Time) []ItemTotal {
	byItem := make(map[string]*ItemTotal)
	for _, iv := range intervals {
		start := iv.StartTime
		if start.Before(r.Start) {
			start = r.Start
		}
		end := iv.End(now)
		if end.After(r.End) {
			end = r.End
		}
		if !end.After(start) {
			continue
		}

		total, ok := byItem[iv.ItemID]
		if !ok {
			total = &ItemTotal{ItemID: iv.ItemID, ItemTitle: iv.ItemTitle}
			byItem[iv.ItemID] = total
		}
		total.Duration += end.Sub(start)
		total.Intervals++
	}

	totals := make([]ItemTotal, 0, len(byItem))
	for _, t := range byItem {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Duration != totals[j].Duration {
			return totals[i].Duration > totals[j].Duration
		}
		return totals[i].ItemID < totals[j].ItemID
	})
	return totals
}

// View is the reconstructed timeline for one date range.
type View struct {
	Range     DateRange   `json:"range"`
	Intervals []Interval  `json:"intervals"`
	Markers   []Marker    `json:"markers"`
	Totals    []ItemTotal `json:"totals"`
}

// BuildView reconstructs the full history and narrows it to r.
func BuildView(events []history.Event, titles TitleLookup, r DateRange, now time.Time) View {
	intervals := IntervalsIn(BuildIntervals(events, titles), r, now)
	return View{
		Range:     r,
		Intervals: intervals,
		Markers:   MarkersIn(BuildMarkers(events, titles), r),
		Totals:    Summarize(intervals, r, now),
	}
}
