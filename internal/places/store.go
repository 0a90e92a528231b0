package places

import (
	"context"

	"backend-urbexqueens/internal/placestate"
)

// Store persists the per-user raw interaction mapping.
type Store interface {
	Get(ctx context.Context, userID string) (placestate.Raw, error)
	// SetFlag merges field=value into the record for placeID, leaving sibling
	// fields and other places untouched.
	SetFlag(ctx context.Context, userID, placeID, field string, value bool) error
	// Watch calls fn with the current mapping and again after every change
	// until ctx is done. Read errors are passed to fn.
	Watch(ctx context.Context, userID string, fn func(placestate.Raw, error)) error
}
