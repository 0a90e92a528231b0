package feed

import (
	"fmt"
	"strings"
	"time"

	"backend-urbexqueens/internal/shared/apperr"
)

// A cursor is the (created_at, id) of the last post returned, so posts that
// share a timestamp are neither skipped nor repeated.
type cursor struct {
	createdAt time.Time
	id        string
}

func (c cursor) String() string {
	return c.createdAt.UTC().Format(time.RFC3339Nano) + "|" + c.id
}

func parseCursor(s string) (*cursor, error) {
	if s == "" {
		return nil, nil
	}
	ts, id, ok := strings.Cut(s, "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("malformed cursor: %w", apperr.ErrInvalidInput)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor time: %w", apperr.ErrInvalidInput)
	}
	return &cursor{createdAt: t, id: id}, nil
}
