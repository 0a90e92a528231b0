package feed

import (
	"context"
	"fmt"
	"sync"

	"backend-urbexqueens/internal/reaction"
	"backend-urbexqueens/internal/shared/apperr"
)

// Source is the read side a Timeline pages through.
type Source interface {
	Page(ctx context.Context, userID, cursor string, limit int) (Page, error)
	ActiveStories(ctx context.Context, userID string) ([]Story, error)
}

// Toggler is the authoritative reaction write.
type Toggler interface {
	Toggle(ctx context.Context, kind reaction.Kind, id, userID, emoji string) error
}

// ApplyOptimistic returns post with userID's reaction toggled. The input post
// is left untouched.
func ApplyOptimistic(post Post, userID, emoji string) Post {
	next := reaction.Toggle(reaction.State{Reactions: post.Reactions, ReactionBy: post.ReactionBy}, userID, emoji)
	post.Reactions, post.ReactionBy = next.Reactions, next.ReactionBy
	return post
}

func ApplyOptimisticStory(story Story, userID, emoji string) Story {
	next := reaction.Toggle(reaction.State{Reactions: story.Reactions, ReactionBy: story.ReactionBy}, userID, emoji)
	story.Reactions, story.ReactionBy = next.Reactions, next.ReactionBy
	return story
}

// Timeline is a viewer's local copy of the feed. Reactions show up
// immediately and are rolled back when the write fails.
type Timeline struct {
	source   Source
	toggler  Toggler
	userID   string
	pageSize int

	mu      sync.RWMutex
	posts   []Post
	stories []Story
	cursor  string
	loaded  bool
}

func NewTimeline(source Source, toggler Toggler, userID string, pageSize int) *Timeline {
	return &Timeline{source: source, toggler: toggler, userID: userID, pageSize: pageSize}
}

// Refresh replaces the timeline with the newest page and the active stories.
func (t *Timeline) Refresh(ctx context.Context) error {
	page, err := t.source.Page(ctx, t.userID, "", t.pageSize)
	if err != nil {
		return err
	}
	stories, err := t.source.ActiveStories(ctx, t.userID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.posts = append([]Post(nil), page.Posts...)
	t.stories = append([]Story(nil), stories...)
	t.cursor = page.NextCursor
	t.loaded = true
	return nil
}

// LoadMore appends the next page and reports how many posts were added. It
// is a no-op once the feed is exhausted.
func (t *Timeline) LoadMore(ctx context.Context) (int, error) {
	t.mu.RLock()
	loaded, cursor := t.loaded, t.cursor
	t.mu.RUnlock()

	if !loaded {
		if err := t.Refresh(ctx); err != nil {
			return 0, err
		}
		return len(t.Posts()), nil
	}
	if cursor == "" {
		return 0, nil
	}

	page, err := t.source.Page(ctx, t.userID, cursor, t.pageSize)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cursor != cursor {
		// refreshed meanwhile
		return 0, nil
	}
	seen := make(map[string]struct{}, len(t.posts))
	for _, p := range t.posts {
		seen[p.ID] = struct{}{}
	}
	added := 0
	for _, p := range page.Posts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		t.posts = append(t.posts, p)
		added++
	}
	t.cursor = page.NextCursor
	return added, nil
}

// React applies the toggle locally, then writes it. On failure the item is
// restored to exactly what it was before and the write error is returned.
func (t *Timeline) React(ctx context.Context, kind reaction.Kind, id, emoji string) error {
	restore, err := t.applyLocal(kind, id, emoji)
	if err != nil {
		return err
	}
	if err := t.toggler.Toggle(ctx, kind, id, t.userID, emoji); err != nil {
		restore()
		return err
	}
	return nil
}

func (t *Timeline) applyLocal(kind reaction.Kind, id, emoji string) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch kind {
	case reaction.KindPost:
		for i := range t.posts {
			if t.posts[i].ID != id {
				continue
			}
			before := t.posts[i]
			t.posts[i] = ApplyOptimistic(before, t.userID, emoji)
			return func() { t.restorePost(before) }, nil
		}
	case reaction.KindStory:
		for i := range t.stories {
			if t.stories[i].ID != id {
				continue
			}
			before := t.stories[i]
			t.stories[i] = ApplyOptimisticStory(before, t.userID, emoji)
			return func() { t.restoreStory(before) }, nil
		}
	default:
		return nil, fmt.Errorf("unknown reactable %q: %w", kind, apperr.ErrInvalidInput)
	}
	// not on screen: nothing to roll back
	return func() {}, nil
}

func (t *Timeline) restorePost(before Post) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.posts {
		if t.posts[i].ID == before.ID {
			t.posts[i] = before
			return
		}
	}
}

func (t *Timeline) restoreStory(before Story) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.stories {
		if t.stories[i].ID == before.ID {
			t.stories[i] = before
			return
		}
	}
}

func (t *Timeline) Posts() []Post {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Post(nil), t.posts...)
}

func (t *Timeline) Stories() []Story {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Story(nil), t.stories...)
}

// Exhausted reports whether the last loaded page was the oldest one.
func (t *Timeline) Exhausted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded && t.cursor == ""
}
