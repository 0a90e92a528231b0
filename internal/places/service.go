package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"backend-urbexqueens/internal/placestate"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/shared/writeguard"
)

// AchievementQueue receives best-effort evaluation requests.
type AchievementQueue interface {
	Enqueue(userID string) bool
}

type Service struct {
	store        Store
	catalog      *Catalog
	guard        writeguard.Guard
	achievements AchievementQueue
}

func NewService(store Store, catalog *Catalog, guard writeguard.Guard, achievements AchievementQueue) *Service {
	return &Service{
		store:        store,
		catalog:      catalog,
		guard:        guard,
		achievements: achievements,
	}
}

// Subscribe delivers the user's raw mapping to onChange now and after every
// change. Read failures deliver an empty mapping instead of an error. The
// returned function stops delivery and waits for the listener to exit; it must
// not be called from inside onChange.
func (s *Service) Subscribe(ctx context.Context, userID string, onChange func(placestate.Raw)) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	var mu sync.Mutex
	stopped := false

	go func() {
		defer close(done)
		err := s.store.Watch(ctx, userID, func(raw placestate.Raw, err error) {
			if err != nil {
				logReadError(userID, err)
				raw = placestate.Raw{}
			}
			if raw == nil {
				raw = placestate.Raw{}
			}

			mu.Lock()
			defer mu.Unlock()
			if stopped {
				return
			}
			onChange(raw)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("place watch ended", "user_id", userID, "error", err)
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

func (s *Service) SetFlag(ctx context.Context, userID, placeID, field string, value bool, opts SetFlagOptions) error {
	if err := s.guard.CheckUser(userID); err != nil {
		return err
	}
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return fmt.Errorf("place id required: %w", apperr.ErrInvalidInput)
	}
	if field != FieldDone && field != FieldSaved {
		return fmt.Errorf("unknown field %q: %w", field, apperr.ErrInvalidInput)
	}

	if err := s.store.SetFlag(ctx, userID, placeID, field, value); err != nil {
		return err
	}

	if field == FieldDone && value && !opts.SkipAchievements && s.achievements != nil {
		s.achievements.Enqueue(userID)
	}
	return nil
}

type Snapshot struct {
	Places           []placestate.Entry          `json:"places"`
	Counts           placestate.Counts           `json:"counts"`
	DuplicateDetails []placestate.DuplicateGroup `json:"duplicate_details"`
	DonePlaces       []Place                     `json:"done_places"`
	SavedPlaces      []Place                     `json:"saved_places"`
}

// Snapshot reads the user's mapping once and resolves it against the catalog.
func (s *Service) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	raw, err := s.store.Get(ctx, userID)
	if err != nil {
		logReadError(userID, err)
		raw = placestate.Raw{}
	}

	res := placestate.NormalizeAndDedupe(raw)
	snap := Snapshot{
		Places:           res.List,
		Counts:           placestate.CountStates(raw),
		DuplicateDetails: res.DuplicateDetails,
		DonePlaces:       []Place{},
		SavedPlaces:      []Place{},
	}
	if len(res.DuplicateDetails) > 0 {
		slog.Debug("duplicate place keys", "user_id", userID, "groups", len(res.DuplicateDetails))
	}
	if s.catalog == nil || len(res.List) == 0 {
		return snap, nil
	}

	ids := make([]string, 0, len(res.List))
	for _, e := range res.List {
		ids = append(ids, e.PlaceID)
	}
	known, err := s.catalog.ListByIDs(ctx, ids)
	if err != nil {
		return Snapshot{}, err
	}
	cols := placestate.BuildCollections(known, func(p Place) string { return p.ID }, raw)
	snap.DonePlaces = cols.DonePlaces
	snap.SavedPlaces = cols.SavedPlaces
	return snap, nil
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func logReadError(userID string, err error) {
	switch {
	case apperr.IsPermissionDenied(err):
		slog.Warn("place state read denied, using empty state", "user_id", userID, "error", err)
	case apperr.IsTransient(err):
		slog.Warn("place state read unavailable, using empty state", "user_id", userID, "error", err)
	default:
		slog.Error("place state read failed, using empty state", "user_id", userID, "error", err)
	}
}
