package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/placestate"
	"backend-urbexqueens/internal/stream"

	"github.com/jackc/pgx/v5"
)

type PostgresStore struct {
	db  db.Querier
	hub *stream.Hub
}

func NewPostgresStore(db db.Querier, hub *stream.Hub) *PostgresStore {
	return &PostgresStore{db: db, hub: hub}
}

var nowMillis = func() int64 { return time.Now().UnixMilli() }

func (s *PostgresStore) Get(ctx context.Context, userID string) (placestate.Raw, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT places FROM user_places WHERE user_id=$1`, userID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return placestate.Raw{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRaw(doc)
}

func (s *PostgresStore) SetFlag(ctx context.Context, userID, placeID, field string, value bool) error {
	patch, err := json.Marshal(map[string]any{
		field:       value,
		"placeId":   placeID,
		"updatedAt": nowMillis(),
	})
	if err != nil {
		return err
	}

	var doc []byte
	err = s.db.QueryRow(ctx, `
		INSERT INTO user_places (user_id, places, updated_at)
		VALUES ($1, jsonb_build_object($2::text, $3::jsonb), now())
		ON CONFLICT (user_id) DO UPDATE
		SET places = jsonb_set(
		        user_places.places,
		        ARRAY[$2::text],
		        CASE WHEN jsonb_typeof(user_places.places -> $2::text) = 'object'
		             THEN user_places.places -> $2::text
		             ELSE '{}'::jsonb END || $3::jsonb,
		        true),
		    updated_at = now()
		RETURNING places
	`, userID, placeID, string(patch)).Scan(&doc)
	if err != nil {
		return fmt.Errorf("set %s for place %s: %w", field, placeID, err)
	}

	if s.hub != nil {
		s.hub.Broadcast(ctx, stream.PlacesTopic(userID), doc)
	}
	return nil
}

func (s *PostgresStore) Watch(ctx context.Context, userID string, fn func(placestate.Raw, error)) error {
	if s.hub == nil {
		fn(s.Get(ctx, userID))
		<-ctx.Done()
		return nil
	}

	client := s.hub.Subscribe(stream.PlacesTopic(userID))
	defer s.hub.Unsubscribe(client)

	fn(s.Get(ctx, userID))
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-client.Send:
			if !ok {
				return nil
			}
			raw, err := decodeRaw(payload)
			if err != nil {
				raw, err = s.Get(ctx, userID)
			}
			fn(raw, err)
		}
	}
}

func decodeRaw(doc []byte) (placestate.Raw, error) {
	raw := placestate.Raw{}
	if len(doc) == 0 {
		return raw, nil
	}
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("decode places document: %w", err)
	}
	return raw, nil
}
