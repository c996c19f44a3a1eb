package stores

import (
	"context"

	"github.com/colonyops/wherewasi/internal/core/history"
	"github.com/colonyops/wherewasi/internal/core/todo"
	"github.com/colonyops/wherewasi/internal/data/db"
)

// TxRunner runs item and event writes in one SQLite transaction.
type TxRunner struct {
	db *db.DB
}

// NewTxRunner creates a TxRunner over database.
func NewTxRunner(database *db.DB) *TxRunner {
	return &TxRunner{db: database}
}

// InTx calls fn with stores bound to a single transaction. If fn returns an
// error nothing it wrote is kept.
func (r *TxRunner) InTx(ctx context.Context, fn func(items todo.Store, events history.Store) error) error {
	return r.db.WithTx(ctx, func(q *db.Queries) error {
		return fn(&ItemStore{q: q}, &EventStore{q: q})
	})
}
