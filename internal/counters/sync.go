// Package counters keeps users.followers_count and users.following_count in
// line with the follow edges, driven by follow.created and follow.deleted.
package counters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/social"

	"github.com/jackc/pgx/v5"
)

type Sync struct {
	db db.Querier
}

func NewSync(db db.Querier) *Sync {
	return &Sync{db: db}
}

// decrementFloor never goes below zero, so duplicate or out-of-order deletes
// cannot drive a counter negative.
func decrementFloor(v int64) int64 {
	if v > 0 {
		return v - 1
	}
	return 0
}

func (s *Sync) FollowCreated(ctx context.Context, ev social.FollowEvent) error {
	if ev.FromUID == "" || ev.ToUID == "" {
		slog.Warn("follow.created without user ids, skipping", "from_uid", ev.FromUID, "to_uid", ev.ToUID)
		return nil
	}

	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := incrementUpsert(ctx, tx, "following_count", ev.FromUID); err != nil {
			return err
		}
		return incrementUpsert(ctx, tx, "followers_count", ev.ToUID)
	})
}

// incrementUpsert creates the user row with a count of one when the profile
// has not been created yet.
func incrementUpsert(ctx context.Context, tx pgx.Tx, column, userID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, `+column+`) VALUES ($1, 1)
		ON CONFLICT (id) DO UPDATE SET `+column+` = users.`+column+` + 1
	`, userID)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	return nil
}

func (s *Sync) FollowDeleted(ctx context.Context, ev social.FollowEvent) error {
	if ev.FromUID == "" || ev.ToUID == "" {
		slog.Warn("follow.deleted without user ids, skipping", "from_uid", ev.FromUID, "to_uid", ev.ToUID)
		return nil
	}

	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := decrementLocked(ctx, tx, "following_count", ev.FromUID); err != nil {
			return err
		}
		return decrementLocked(ctx, tx, "followers_count", ev.ToUID)
	})
}

func decrementLocked(ctx context.Context, tx pgx.Tx, column, userID string) error {
	var current int64
	err := tx.QueryRow(ctx, `SELECT `+column+` FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", column, err)
	}
	if current <= 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET `+column+` = $2 WHERE id=$1`, userID, decrementFloor(current)); err != nil {
		return fmt.Errorf("decrement %s: %w", column, err)
	}
	return nil
}

// Publish lets Sync stand in for the event bus when none is configured.
func (s *Sync) Publish(ctx context.Context, subject string, ev social.FollowEvent) error {
	var err error
	switch subject {
	case social.SubjectFollowCreated:
		err = s.FollowCreated(ctx, ev)
	case social.SubjectFollowDeleted:
		err = s.FollowDeleted(ctx, ev)
	default:
		return fmt.Errorf("unknown subject %q", subject)
	}
	if err != nil {
		slog.Error("follow counter update failed", "subject", subject, "from_uid", ev.FromUID, "to_uid", ev.ToUID, "error", err)
	}
	return nil
}
