package logging

import "context"

type contextKey string

const (
	itemIDKey contextKey = "item_id"
	opKey     contextKey = "op"
)

// WithItemID adds an item ID to the context.
func WithItemID(ctx context.Context, itemID string) context.Context {
	return context.WithValue(ctx, itemIDKey, itemID)
}

// WithOp adds the name of the running lifecycle operation to the context.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey, op)
}

// GetItemID retrieves the item ID from the context.
// Returns empty string if not present.
func GetItemID(ctx context.Context) string {
	if id, ok := ctx.Value(itemIDKey).(string); ok {
		return id
	}
	return ""
}

// GetOp retrieves the operation name from the context.
// Returns empty string if not present.
func GetOp(ctx context.Context) string {
	if op, ok := ctx.Value(opKey).(string); ok {
		return op
	}
	return ""
}
