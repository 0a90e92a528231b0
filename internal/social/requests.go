package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RequestFollow files a pending request from fromUID to profileUID, reusing an
// existing pending one.
func (s *Service) RequestFollow(ctx context.Context, profileUID, fromUID string) (string, error) {
	if err := s.guard.CheckUser(fromUID); err != nil {
		return "", err
	}
	if profileUID == "" {
		return "", fmt.Errorf("profile required: %w", apperr.ErrInvalidInput)
	}

	var id string
	err := s.db.QueryRow(ctx, `
		SELECT id FROM follow_requests
		WHERE target_id=$1 AND from_uid=$2 AND status='pending'
		ORDER BY created_at
		LIMIT 1
	`, profileUID, fromUID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("find pending request: %w", err)
	}

	id = uuid.NewString()
	if _, err := s.db.Exec(ctx, `
		INSERT INTO follow_requests (id, target_id, from_uid, status, created_at)
		VALUES ($1,$2,$3,'pending', now())
	`, id, profileUID, fromUID); err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	s.notify(ctx, stream.RequestsTopic(profileUID), fromUID)
	return id, nil
}

// AcceptFollowRequest marks the request accepted and creates the edge. A
// request without a sender cannot be honoured and is declined instead.
func (s *Service) AcceptFollowRequest(ctx context.Context, profileUID, requestID string) error {
	if err := s.guard.CheckUser(profileUID); err != nil {
		return err
	}

	var fromUID string
	err := s.db.QueryRow(ctx, `
		SELECT from_uid FROM follow_requests WHERE id=$1 AND target_id=$2
	`, requestID, profileUID).Scan(&fromUID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}

	fromUID = strings.TrimSpace(fromUID)
	if fromUID == "" {
		return s.setRequestStatus(ctx, profileUID, requestID, StatusDeclined)
	}
	if err := s.setRequestStatus(ctx, profileUID, requestID, StatusAccepted); err != nil {
		return err
	}
	// the request carries the sender's consent, so the edge is written on
	// the profile owner's authority
	return s.Follow(ctx, fromUID, profileUID)
}

// DeclineFollowRequest keeps the request row for history.
func (s *Service) DeclineFollowRequest(ctx context.Context, profileUID, requestID string) error {
	if err := s.guard.CheckUser(profileUID); err != nil {
		return err
	}
	return s.setRequestStatus(ctx, profileUID, requestID, StatusDeclined)
}

func (s *Service) setRequestStatus(ctx context.Context, profileUID, requestID, status string) error {
	if _, err := s.db.Exec(ctx, `
		UPDATE follow_requests SET status=$3 WHERE id=$1 AND target_id=$2
	`, requestID, profileUID, status); err != nil {
		return fmt.Errorf("mark request %s: %w", status, err)
	}
	s.notify(ctx, stream.RequestsTopic(profileUID), "")
	return nil
}
