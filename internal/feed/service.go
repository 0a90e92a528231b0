package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/shared/writeguard"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var now = time.Now

type Service struct {
	db    db.Querier
	guard writeguard.Guard
}

func NewService(db db.Querier, guard writeguard.Guard) *Service {
	return &Service{db: db, guard: guard}
}

func (s *Service) CreatePost(ctx context.Context, input Post) (Post, error) {
	if err := s.guard.CheckUser(input.UserID); err != nil {
		return Post{}, err
	}
	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" {
		return Post{}, fmt.Errorf("content required: %w", apperr.ErrInvalidInput)
	}
	if (input.Lat == nil) != (input.Lng == nil) {
		return Post{}, fmt.Errorf("lat and lng go together: %w", apperr.ErrInvalidInput)
	}

	input.ID = uuid.NewString()
	if input.Visibility == "" {
		input.Visibility = VisibilityPublic
	}
	input.Reactions = map[string]int64{}
	input.ReactionBy = map[string]string{}

	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, user_id, content, location, visibility)
		VALUES ($1,$2,$3,
			CASE WHEN $4::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($4,$5), 4326)::geography END,
			$6)
		RETURNING created_at
	`, input.ID, input.UserID, input.Content, input.Lng, input.Lat, input.Visibility)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}
	return input, nil
}

func (s *Service) AddPhoto(ctx context.Context, userID, postID, url string) (PostPhoto, error) {
	if err := s.guard.CheckUser(userID); err != nil {
		return PostPhoto{}, err
	}
	photo := PostPhoto{
		ID:     uuid.NewString(),
		PostID: postID,
		URL:    url,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO post_photos (id, post_id, photo_url)
		SELECT $1, id, $3 FROM posts WHERE id=$2 AND user_id=$4
		RETURNING created_at
	`, photo.ID, photo.PostID, photo.URL, userID)
	if err := row.Scan(&photo.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostPhoto{}, fmt.Errorf("post %s: %w", postID, apperr.ErrNotFound)
		}
		return PostPhoto{}, fmt.Errorf("insert photo: %w", err)
	}
	return photo, nil
}

// CreateStory publishes a story that stays visible for 24 hours.
func (s *Service) CreateStory(ctx context.Context, userID, mediaURL string) (Story, error) {
	if err := s.guard.CheckUser(userID); err != nil {
		return Story{}, err
	}
	if strings.TrimSpace(mediaURL) == "" {
		return Story{}, fmt.Errorf("media_url required: %w", apperr.ErrInvalidInput)
	}

	story := Story{
		ID:         uuid.NewString(),
		UserID:     userID,
		MediaURL:   mediaURL,
		Reactions:  map[string]int64{},
		ReactionBy: map[string]string{},
		ExpiresAt:  now().Add(storyLifetime).UTC(),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO stories (id, user_id, media_url, expires_at)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, story.ID, story.UserID, story.MediaURL, story.ExpiresAt)
	if err := row.Scan(&story.CreatedAt); err != nil {
		return Story{}, fmt.Errorf("insert story: %w", err)
	}
	return story, nil
}

// Page returns the user's own and followed posts, newest first, starting
// after cursor.
func (s *Service) Page(ctx context.Context, userID, cursorText string, limit int) (Page, error) {
	after, err := parseCursor(cursorText)
	if err != nil {
		return Page{}, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var afterAt *time.Time
	var afterID string
	if after != nil {
		afterAt, afterID = &after.createdAt, after.id
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, content, ST_Y(location::geometry), ST_X(location::geometry), visibility, reactions, reaction_by, created_at
		FROM posts
		WHERE (user_id=$1 OR user_id IN (SELECT following_id FROM user_following WHERE user_id=$1))
		  AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, userID, afterAt, afterID, limit+1)
	if err != nil {
		return Page{}, err
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return Page{}, err
	}

	page := Page{Posts: posts}
	if len(posts) > limit {
		page.Posts = posts[:limit]
		last := page.Posts[limit-1]
		page.NextCursor = cursor{createdAt: last.CreatedAt, id: last.ID}.String()
	}
	if err := s.attachPhotos(ctx, page.Posts); err != nil {
		return Page{}, err
	}
	return page, nil
}

func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]Post, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, content, ST_Y(location::geometry), ST_X(location::geometry), visibility, reactions, reaction_by, created_at
		FROM posts
		WHERE visibility='public'
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1,$2), 4326)::geography, $3)
		ORDER BY created_at DESC
	`, lng, lat, radiusKm*1000)
	if err != nil {
		return nil, err
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachPhotos(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ActiveStories lists unexpired stories from the user and everyone they follow.
func (s *Service) ActiveStories(ctx context.Context, userID string) ([]Story, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, media_url, reactions, reaction_by, created_at, expires_at
		FROM stories
		WHERE (user_id=$1 OR user_id IN (SELECT following_id FROM user_following WHERE user_id=$1))
		  AND expires_at > $2
		ORDER BY created_at DESC
	`, userID, now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stories := []Story{}
	for rows.Next() {
		var st Story
		var reactions, by []byte
		if err := rows.Scan(&st.ID, &st.UserID, &st.MediaURL, &reactions, &by, &st.CreatedAt, &st.ExpiresAt); err != nil {
			return nil, err
		}
		if st.Reactions, st.ReactionBy, err = decodeReactions(reactions, by); err != nil {
			return nil, err
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

func (s *Service) attachPhotos(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, post_id, photo_url, created_at
		FROM post_photos WHERE post_id = ANY($1)
		ORDER BY created_at
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	photos := map[string][]PostPhoto{}
	for rows.Next() {
		var p PostPhoto
		if err := rows.Scan(&p.ID, &p.PostID, &p.URL, &p.CreatedAt); err != nil {
			return err
		}
		photos[p.PostID] = append(photos[p.PostID], p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range posts {
		posts[i].Photos = photos[posts[i].ID]
	}
	return nil
}

func scanPosts(rows pgx.Rows) ([]Post, error) {
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		var reactions, by []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.Lat, &p.Lng, &p.Visibility, &reactions, &by, &p.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if p.Reactions, p.ReactionBy, err = decodeReactions(reactions, by); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func decodeReactions(reactions, by []byte) (map[string]int64, map[string]string, error) {
	counts := map[string]int64{}
	owners := map[string]string{}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &counts); err != nil {
			return nil, nil, fmt.Errorf("decode reactions: %w", err)
		}
	}
	if len(by) > 0 {
		if err := json.Unmarshal(by, &owners); err != nil {
			return nil, nil, fmt.Errorf("decode reaction_by: %w", err)
		}
	}
	return counts, owners, nil
}
