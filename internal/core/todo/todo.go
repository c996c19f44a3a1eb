// Package todo defines the work item domain model and its persistence contract.
package todo

import (
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Status represents the lifecycle state of an item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusInProgress, StatusPending, StatusCompleted}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Item is a trackable unit of work with one current status. Status is a
// cached projection of the item's most recent history event.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the item is the in-progress item.
func (i Item) Active() bool {
	return i.Status == StatusInProgress
}

// ListFilter controls which items are returned by List.
type ListFilter struct {
	Status Status // empty means all statuses
	Match  string // doublestar glob over the title, case-insensitive; empty matches all
}

// Matches reports whether item passes the filter. An invalid glob matches nothing.
func (f ListFilter) Matches(item Item) bool {
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.Match == "" {
		return true
	}
	ok, err := doublestar.Match(strings.ToLower(f.Match), strings.ToLower(item.Title))
	return err == nil && ok
}

// Titles returns an id to title map for items.
func Titles(items []Item) map[string]string {
	out := make(map[string]string, len(items))
	for _, item := range items {
		out[item.ID] = item.Title
	}
	return out
}
