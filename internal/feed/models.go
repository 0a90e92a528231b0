package feed

import "time"

const (
	VisibilityPublic = "public"

	defaultPageSize = 20
	maxPageSize     = 100
	storyLifetime   = 24 * time.Hour
)

type Post struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Content    string            `json:"content"`
	Lat        *float64          `json:"lat,omitempty"`
	Lng        *float64          `json:"lng,omitempty"`
	Visibility string            `json:"visibility"`
	Reactions  map[string]int64  `json:"reactions"`
	ReactionBy map[string]string `json:"reaction_by"`
	Photos     []PostPhoto       `json:"photos,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type PostPhoto struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	URL       string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Story struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	MediaURL   string            `json:"media_url"`
	Reactions  map[string]int64  `json:"reactions"`
	ReactionBy map[string]string `json:"reaction_by"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// Page is one slice of a feed. An empty NextCursor means there is nothing
// older to load.
type Page struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"next_cursor"`
}
