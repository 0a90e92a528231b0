package social

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"backend-urbexqueens/internal/stream"
)

var now = time.Now

func (s *Service) Followers(ctx context.Context, userID string) ([]FollowEdge, error) {
	return s.edges(ctx, `
		SELECT follower_id, created_at FROM user_followers
		WHERE user_id=$1
		ORDER BY created_at DESC NULLS LAST
	`, userID)
}

func (s *Service) Following(ctx context.Context, userID string) ([]FollowEdge, error) {
	return s.edges(ctx, `
		SELECT following_id, created_at FROM user_following
		WHERE user_id=$1
		ORDER BY created_at DESC NULLS LAST
	`, userID)
}

func (s *Service) PendingRequests(ctx context.Context, profileUID string) ([]FollowRequest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, target_id, from_uid, status, created_at FROM follow_requests
		WHERE target_id=$1 AND status='pending'
		ORDER BY created_at DESC NULLS LAST
	`, profileUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []FollowRequest{}
	for rows.Next() {
		var r FollowRequest
		var createdAt *time.Time
		if err := rows.Scan(&r.ID, &r.TargetID, &r.FromUID, &r.Status, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = orNow(createdAt)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *Service) edges(ctx context.Context, query, userID string) ([]FollowEdge, error) {
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := []FollowEdge{}
	for rows.Next() {
		var e FollowEdge
		var createdAt *time.Time
		if err := rows.Scan(&e.UserID, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = orNow(createdAt)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// A missing server timestamp (write not yet settled) reads as now.
func orNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return now()
	}
	return *t
}

// ListenFollowers calls fn with the current followers and again after every
// change until the returned function is called.
func (s *Service) ListenFollowers(ctx context.Context, userID string, fn func([]FollowEdge)) (unsubscribe func()) {
	return listen(ctx, s.hub, stream.FollowersTopic(userID), func(ctx context.Context) ([]FollowEdge, error) {
		return s.Followers(ctx, userID)
	}, fn, userID)
}

func (s *Service) ListenFollowing(ctx context.Context, userID string, fn func([]FollowEdge)) (unsubscribe func()) {
	return listen(ctx, s.hub, stream.FollowingTopic(userID), func(ctx context.Context) ([]FollowEdge, error) {
		return s.Following(ctx, userID)
	}, fn, userID)
}

func (s *Service) ListenFollowRequests(ctx context.Context, profileUID string, fn func([]FollowRequest)) (unsubscribe func()) {
	return listen(ctx, s.hub, stream.RequestsTopic(profileUID), func(ctx context.Context) ([]FollowRequest, error) {
		return s.PendingRequests(ctx, profileUID)
	}, fn, profileUID)
}

// listen re-reads the list on every hub notification. Read errors deliver an
// empty list.
func listen[T any](ctx context.Context, hub *stream.Hub, topic string, load func(context.Context) ([]T, error), fn func([]T), userID string) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	var mu sync.Mutex
	stopped := false
	emit := func() {
		items, err := load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("listener read failed, using empty list", "topic", topic, "user_id", userID, "error", err)
			items = []T{}
		}
		mu.Lock()
		defer mu.Unlock()
		if !stopped {
			fn(items)
		}
	}

	var client *stream.Client
	if hub != nil {
		client = hub.Subscribe(topic)
	}

	go func() {
		defer close(done)
		if client != nil {
			defer hub.Unsubscribe(client)
		}
		emit()
		if client == nil {
			<-ctx.Done()
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-client.Send:
				if !ok {
					return
				}
				emit()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			cancel()
			<-done
		})
	}
}
