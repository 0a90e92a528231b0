// Package profile owns the users row: it is created the first time a user
// authenticates and carries the privacy flag and the follow counters.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/shared/writeguard"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, display_name, is_private, followers_count, following_count, created_at`

type Service struct {
	db    db.Querier
	guard writeguard.Guard
	known sync.Map
}

func NewService(db db.Querier, guard writeguard.Guard) *Service {
	return &Service{db: db, guard: guard}
}

// Ensure creates the user's row if it does not exist yet. Users already seen
// by this process are skipped.
func (s *Service) Ensure(ctx context.Context, userID string) error {
	if _, ok := s.known.Load(userID); ok {
		return nil
	}
	if err := s.guard.CheckUser(userID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	s.known.Store(userID, struct{}{})
	return nil
}

// EnsureHook runs Ensure for the auth middleware. A failure never rejects the
// request; the row is retried on the next call.
func (s *Service) EnsureHook(ctx context.Context, userID string) {
	err := s.Ensure(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrWriteBlocked):
		slog.Debug("profile creation skipped", "user_id", userID, "error", err)
	default:
		slog.Warn("profile creation failed", "user_id", userID, "error", err)
	}
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	row := s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id=$1`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, fmt.Errorf("profile %s: %w", userID, apperr.ErrNotFound)
	}
	return p, err
}

// Update applies the non-nil fields, creating the row when needed.
func (s *Service) Update(ctx context.Context, userID string, u Update) (Profile, error) {
	if err := s.guard.CheckUser(userID); err != nil {
		return Profile{}, err
	}
	if u.DisplayName == nil && u.IsPrivate == nil {
		return Profile{}, fmt.Errorf("nothing to update: %w", apperr.ErrInvalidInput)
	}
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		u.DisplayName = &name
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, display_name, is_private)
		VALUES ($1, COALESCE($2::text, ''), COALESCE($3::boolean, FALSE))
		ON CONFLICT (id) DO UPDATE SET
			display_name = COALESCE($2::text, users.display_name),
			is_private = COALESCE($3::boolean, users.is_private)
		RETURNING `+profileColumns,
		userID, u.DisplayName, u.IsPrivate)
	p, err := scanProfile(row)
	if err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	s.known.Store(userID, struct{}{})
	return p, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.DisplayName, &p.IsPrivate, &p.FollowersCount, &p.FollowingCount, &p.CreatedAt)
	return p, err
}
