package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/wherewasi/internal/core/todo"
	"github.com/colonyops/wherewasi/internal/data/db"
)

// ItemStore implements todo.Store using SQLite.
type ItemStore struct {
	q *db.Queries
}

var _ todo.Store = (*ItemStore)(nil)

// NewItemStore creates a new SQLite-backed item store.
func NewItemStore(database *db.DB) *ItemStore {
	return &ItemStore{q: database.Queries()}
}

// Create inserts a new item. The caller assigns the ID and timestamps.
func (s *ItemStore) Create(ctx context.Context, item todo.Item) error {
	err := s.q.InsertItem(ctx, db.InsertItemParams{
		ID:        item.ID,
		Title:     item.Title,
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt.UnixNano(),
		UpdatedAt: item.UpdatedAt.UnixNano(),
	})
	if err != nil {
		if IsUniqueConstraintError(err) && item.Status == todo.StatusInProgress {
			return todo.ErrActiveConflict
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Get returns a single item by ID.
func (s *ItemStore) Get(ctx context.Context, id string) (todo.Item, error) {
	row, err := s.q.GetItem(ctx, id)
	if err != nil {
		if IsNotFoundError(err) {
			return todo.Item{}, todo.ErrNotFound
		}
		return todo.Item{}, fmt.Errorf("get item: %w", err)
	}
	return rowToItem(row), nil
}

// Update writes title, status and updated_at.
func (s *ItemStore) Update(ctx context.Context, item todo.Item) error {
	n, err := s.q.UpdateItem(ctx, db.UpdateItemParams{
		Title:     item.Title,
		Status:    string(item.Status),
		UpdatedAt: item.UpdatedAt.UnixNano(),
		ID:        item.ID,
	})
	if err != nil {
		if IsUniqueConstraintError(err) {
			return todo.ErrActiveConflict
		}
		return fmt.Errorf("update item: %w", err)
	}
	if n == 0 {
		return todo.ErrNotFound
	}
	return nil
}

// Delete removes the item row. History events are untouched.
func (s *ItemStore) Delete(ctx context.Context, id string) error {
	n, err := s.q.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n == 0 {
		return todo.ErrNotFound
	}
	return nil
}

// List returns items matching the filter, ordered by created_at DESC.
func (s *ItemStore) List(ctx context.Context, filter todo.ListFilter) ([]todo.Item, error) {
	var (
		rows []db.Item
		err  error
	)
	if filter.Status != "" {
		rows, err = s.q.ListItemsByStatus(ctx, string(filter.Status))
	} else {
		rows, err = s.q.ListItems(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]todo.Item, 0, len(rows))
	for _, row := range rows {
		item := rowToItem(row)
		if filter.Matches(item) {
			items = append(items, item)
		}
	}
	return items, nil
}

// FindByStatus returns every item with the given status.
func (s *ItemStore) FindByStatus(ctx context.Context, status todo.Status) ([]todo.Item, error) {
	rows, err := s.q.ListItemsByStatus(ctx, string(status))
	if err != nil {
		return nil, fmt.Errorf("find items by status: %w", err)
	}

	items := make([]todo.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, rowToItem(row))
	}
	return items, nil
}

func rowToItem(row db.Item) todo.Item {
	return todo.Item{
		ID:        row.ID,
		Title:     row.Title,
		Status:    todo.Status(row.Status),
		CreatedAt: time.Unix(0, row.CreatedAt),
		UpdatedAt: time.Unix(0, row.UpdatedAt),
	}
}
