package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/shared/writeguard"
	"backend-urbexqueens/internal/stream"

	"github.com/jackc/pgx/v5"
)

type Service struct {
	db     db.Querier
	hub    *stream.Hub
	guard  writeguard.Guard
	events EdgePublisher
}

func NewService(db db.Querier, hub *stream.Hub, guard writeguard.Guard, events EdgePublisher) *Service {
	return &Service{db: db, hub: hub, guard: guard, events: events}
}

// Follow creates whichever sides of the edge are missing in one transaction.
// Following yourself or an existing edge is a no-op.
func (s *Service) Follow(ctx context.Context, fromUID, toUID string) error {
	if err := s.guard.CheckUser(fromUID); err != nil {
		return err
	}
	if toUID == "" {
		return fmt.Errorf("target user required: %w", apperr.ErrInvalidInput)
	}
	if fromUID == toUID {
		return nil
	}

	var followerExists, followingExists bool
	err := s.db.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM user_followers WHERE user_id=$1 AND follower_id=$2),
			EXISTS (SELECT 1 FROM user_following WHERE user_id=$2 AND following_id=$1)
	`, toUID, fromUID).Scan(&followerExists, &followingExists)
	if err != nil {
		return fmt.Errorf("check follow edge: %w", err)
	}
	if followerExists && followingExists {
		return nil
	}

	created := false
	err = db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if !followerExists {
			tag, err := tx.Exec(ctx, `
				INSERT INTO user_followers (user_id, follower_id, created_at)
				VALUES ($1,$2, now())
				ON CONFLICT DO NOTHING
			`, toUID, fromUID)
			if err != nil {
				return err
			}
			created = tag.RowsAffected() > 0
		}
		if !followingExists {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_following (user_id, following_id, created_at)
				VALUES ($1,$2, now())
				ON CONFLICT DO NOTHING
			`, fromUID, toUID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}

	s.notifyEdge(ctx, fromUID, toUID)
	if created {
		s.publish(ctx, SubjectFollowCreated, fromUID, toUID)
	}
	return nil
}

// Unfollow removes both sides, tolerating either side being absent.
func (s *Service) Unfollow(ctx context.Context, fromUID, toUID string) error {
	if err := s.guard.CheckUser(fromUID); err != nil {
		return err
	}
	if toUID == "" {
		return fmt.Errorf("target user required: %w", apperr.ErrInvalidInput)
	}

	removed := false
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM user_followers WHERE user_id=$1 AND follower_id=$2`, toUID, fromUID)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		_, err = tx.Exec(ctx, `DELETE FROM user_following WHERE user_id=$1 AND following_id=$2`, fromUID, toUID)
		return err
	})
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}

	s.notifyEdge(ctx, fromUID, toUID)
	if removed {
		s.publish(ctx, SubjectFollowDeleted, fromUID, toUID)
	}
	return nil
}

// FollowOrRequest follows public profiles and files a request for private ones.
// The request id is empty when a follow happened.
func (s *Service) FollowOrRequest(ctx context.Context, fromUID, toUID string) (string, error) {
	if err := s.guard.CheckUser(fromUID); err != nil {
		return "", err
	}
	var private bool
	err := s.db.QueryRow(ctx, `SELECT is_private FROM users WHERE id=$1`, toUID).Scan(&private)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if private && fromUID != toUID {
		return s.RequestFollow(ctx, toUID, fromUID)
	}
	return "", s.Follow(ctx, fromUID, toUID)
}

func (s *Service) publish(ctx context.Context, subject, fromUID, toUID string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, subject, FollowEvent{FromUID: fromUID, ToUID: toUID}); err != nil {
		slog.Error("publish follow event", "subject", subject, "from_uid", fromUID, "to_uid", toUID, "error", err)
	}
}

func (s *Service) notifyEdge(ctx context.Context, fromUID, toUID string) {
	s.notify(ctx, stream.FollowersTopic(toUID), fromUID)
	s.notify(ctx, stream.FollowingTopic(fromUID), toUID)
}

func (s *Service) notify(ctx context.Context, topic, counterpart string) {
	if s.hub == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"user_id": counterpart})
	s.hub.Broadcast(ctx, topic, payload)
}
