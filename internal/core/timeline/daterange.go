package timeline

import "time"

// DateRange is the half-open span [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Day returns the calendar day containing t, in t's location.
func Day(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return DateRange{
		Start: start,
		End:   time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location()),
	}
}

// Week returns the seven calendar days containing t, beginning on weekStart.
func Week(t time.Time, weekStart time.Weekday) DateRange {
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	return DateRange{
		Start: start,
		End:   time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, t.Location()),
	}
}

// IntervalsIn returns the intervals that start inside r or run into it from
// before. One ending exactly at r.Start belongs to the previous range.
// Ongoing intervals end at now. Input order is preserved.
func IntervalsIn(intervals []Interval, r DateRange, now time.Time) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if r.Contains(iv.StartTime) || (iv.StartTime.Before(r.Start) && iv.End(now).After(r.Start)) {
			out = append(out, iv)
		}
	}
	return out
}

// MarkersIn returns the markers whose timestamp falls inside r, preserving
// input order.
func MarkersIn(markers []Marker, r DateRange) []Marker {
	out := make([]Marker, 0, len(markers))
	for _, m := range markers {
		if r.Contains(m.Timestamp) {
			out = append(out, m)
		}
	}
	return out
}
