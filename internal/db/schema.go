package db

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		is_private BOOLEAN NOT NULL DEFAULT FALSE,
		followers_count BIGINT NOT NULL DEFAULT 0 CHECK (followers_count >= 0),
		following_count BIGINT NOT NULL DEFAULT 0 CHECK (following_count >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_places (
		user_id TEXT PRIMARY KEY,
		places JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_followers (
		user_id TEXT NOT NULL,
		follower_id TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now(),
		PRIMARY KEY (user_id, follower_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_following (
		user_id TEXT NOT NULL,
		following_id TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now(),
		PRIMARY KEY (user_id, following_id)
	)`,
	`CREATE TABLE IF NOT EXISTS follow_requests (
		id TEXT PRIMARY KEY,
		target_id TEXT NOT NULL,
		from_uid TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS follow_requests_pending_idx ON follow_requests (target_id, from_uid) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS places (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		location GEOGRAPHY(POINT, 4326) NOT NULL,
		created_by TEXT NOT NULL,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		location GEOGRAPHY(POINT, 4326),
		visibility TEXT NOT NULL DEFAULT 'public',
		reactions JSONB NOT NULL DEFAULT '{}'::jsonb,
		reaction_by JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_user_created_idx ON posts (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS post_photos (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		photo_url TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		media_url TEXT NOT NULL,
		reactions JSONB NOT NULL DEFAULT '{}'::jsonb,
		reaction_by JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id TEXT NOT NULL,
		code TEXT NOT NULL,
		earned_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, code)
	)`,
}

// EnsureSchema creates the tables used by the services. Safe to run on every boot.
func EnsureSchema(ctx context.Context, q Querier) error {
	for i, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
