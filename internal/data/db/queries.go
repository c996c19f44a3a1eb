package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const insertItem = `
INSERT INTO items (id, title, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`

type InsertItemParams struct {
	ID        string
	Title     string
	Status    string
	CreatedAt int64
	UpdatedAt int64
}

func (q *Queries) InsertItem(ctx context.Context, arg InsertItemParams) error {
	_, err := q.db.ExecContext(ctx, insertItem,
		arg.ID,
		arg.Title,
		arg.Status,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getItem = `
SELECT id, title, status, created_at, updated_at
FROM items
WHERE id = ?
`

func (q *Queries) GetItem(ctx context.Context, id string) (Item, error) {
	row := q.db.QueryRowContext(ctx, getItem, id)
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateItem = `
UPDATE items
SET title = ?, status = ?, updated_at = ?
WHERE id = ?
`

type UpdateItemParams struct {
	Title     string
	Status    string
	UpdatedAt int64
	ID        string
}

func (q *Queries) UpdateItem(ctx context.Context, arg UpdateItemParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateItem,
		arg.Title,
		arg.Status,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteItem = `
DELETE FROM items
WHERE id = ?
`

func (q *Queries) DeleteItem(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listItems = `
SELECT id, title, status, created_at, updated_at
FROM items
ORDER BY created_at DESC, id
`

func (q *Queries) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.QueryContext(ctx, listItems)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

const listItemsByStatus = `
SELECT id, title, status, created_at, updated_at
FROM items
WHERE status = ?
ORDER BY created_at DESC, id
`

func (q *Queries) ListItemsByStatus(ctx context.Context, status string) ([]Item, error) {
	rows, err := q.db.QueryContext(ctx, listItemsByStatus, status)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	defer func() { _ = rows.Close() }()
	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.Status,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertHistoryEvent = `
INSERT INTO history_events (id, item_id, event_type, from_status, to_status, timestamp)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING seq
`

type InsertHistoryEventParams struct {
	ID         string
	ItemID     string
	EventType  string
	FromStatus sql.NullString
	ToStatus   string
	Timestamp  int64
}

func (q *Queries) InsertHistoryEvent(ctx context.Context, arg InsertHistoryEventParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertHistoryEvent,
		arg.ID,
		arg.ItemID,
		arg.EventType,
		arg.FromStatus,
		arg.ToStatus,
		arg.Timestamp,
	)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

const listHistoryEvents = `
SELECT seq, id, item_id, event_type, from_status, to_status, timestamp
FROM history_events
ORDER BY timestamp, seq
`

func (q *Queries) ListHistoryEvents(ctx context.Context) ([]HistoryEvent, error) {
	rows, err := q.db.QueryContext(ctx, listHistoryEvents)
	if err != nil {
		return nil, err
	}
	return scanHistoryEvents(rows)
}

const listHistoryEventsByItem = `
SELECT seq, id, item_id, event_type, from_status, to_status, timestamp
FROM history_events
WHERE item_id = ?
ORDER BY timestamp, seq
`

func (q *Queries) ListHistoryEventsByItem(ctx context.Context, itemID string) ([]HistoryEvent, error) {
	rows, err := q.db.QueryContext(ctx, listHistoryEventsByItem, itemID)
	if err != nil {
		return nil, err
	}
	return scanHistoryEvents(rows)
}

const listHistoryEventsBetween = `
SELECT seq, id, item_id, event_type, from_status, to_status, timestamp
FROM history_events
WHERE timestamp >= ? AND timestamp < ?
ORDER BY timestamp, seq
`

type ListHistoryEventsBetweenParams struct {
	Start int64
	End   int64
}

func (q *Queries) ListHistoryEventsBetween(ctx context.Context, arg ListHistoryEventsBetweenParams) ([]HistoryEvent, error) {
	rows, err := q.db.QueryContext(ctx, listHistoryEventsBetween, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return scanHistoryEvents(rows)
}

const countHistoryEvents = `
SELECT COUNT(*) FROM history_events
`

func (q *Queries) CountHistoryEvents(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countHistoryEvents)
	var count int64
	err := row.Scan(&count)
	return count, err
}

func scanHistoryEvents(rows *sql.Rows) ([]HistoryEvent, error) {
	defer func() { _ = rows.Close() }()
	var events []HistoryEvent
	for rows.Next() {
		var e HistoryEvent
		if err := rows.Scan(
			&e.Seq,
			&e.ID,
			&e.ItemID,
			&e.EventType,
			&e.FromStatus,
			&e.ToStatus,
			&e.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
