package todo

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an item does not exist.
	ErrNotFound = errors.New("todo item not found")
	// ErrEmptyTitle is returned when creating an item with a blank title.
	ErrEmptyTitle = errors.New("todo item title is empty")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the item's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrActiveConflict is returned by a store when a write would leave two
	// items in progress.
	ErrActiveConflict = errors.New("another item is already in progress")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	ItemID string
	Op     string
	From   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s item %s: status is %s", e.Op, e.ItemID, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Store defines the interface for item persistence. It holds no lifecycle
// rules beyond the single in-progress slot.
type Store interface {
	// Create inserts a new item.
	Create(ctx context.Context, item Item) error

	// Get returns a single item by ID.
	// Returns ErrNotFound if the item does not exist.
	Get(ctx context.Context, id string) (Item, error)

	// Update writes the item's title, status and updated_at.
	// Returns ErrNotFound if the item does not exist and ErrActiveConflict
	// if it would make a second item in progress.
	Update(ctx context.Context, item Item) error

	// Delete removes an item. Its history is kept.
	// Returns ErrNotFound if the item does not exist.
	Delete(ctx context.Context, id string) error

	// List returns items matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Item, error)

	// FindByStatus returns every item with the given status.
	FindByStatus(ctx context.Context, status Status) ([]Item, error)
}
