package reaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/shared/apperr"
	"backend-urbexqueens/internal/shared/writeguard"

	"github.com/jackc/pgx/v5"
)

type Kind string

const (
	KindPost  Kind = "post"
	KindStory Kind = "story"
)

func (k Kind) table() (string, bool) {
	switch k {
	case KindPost:
		return "posts", true
	case KindStory:
		return "stories", true
	}
	return "", false
}

type Service struct {
	db    db.Querier
	guard writeguard.Guard
}

func NewService(db db.Querier, guard writeguard.Guard) *Service {
	return &Service{db: db, guard: guard}
}

// Toggle applies the reaction inside one row-locked transaction. A document
// that no longer exists is left alone without error.
func (s *Service) Toggle(ctx context.Context, kind Kind, id, userID, emoji string) error {
	if err := s.guard.CheckUser(userID); err != nil {
		return err
	}
	table, ok := kind.table()
	if !ok {
		return fmt.Errorf("unknown reactable %q: %w", kind, apperr.ErrInvalidInput)
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return fmt.Errorf("emoji required: %w", apperr.ErrInvalidInput)
	}

	return db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var reactionsDoc, byDoc []byte
		err := tx.QueryRow(ctx, `SELECT reactions, reaction_by FROM `+table+` WHERE id=$1 FOR UPDATE`, id).
			Scan(&reactionsDoc, &byDoc)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read reactions: %w", err)
		}

		var state State
		if err := decodeState(reactionsDoc, byDoc, &state); err != nil {
			return err
		}
		next := Toggle(state, userID, emoji)

		reactions, err := json.Marshal(next.Reactions)
		if err != nil {
			return err
		}
		by, err := json.Marshal(next.ReactionBy)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE `+table+` SET reactions=$2, reaction_by=$3 WHERE id=$1`,
			id, string(reactions), string(by)); err != nil {
			return fmt.Errorf("write reactions: %w", err)
		}
		return nil
	})
}

func decodeState(reactionsDoc, byDoc []byte, state *State) error {
	state.Reactions = map[string]int64{}
	state.ReactionBy = map[string]string{}
	if len(reactionsDoc) > 0 {
		if err := json.Unmarshal(reactionsDoc, &state.Reactions); err != nil {
			return fmt.Errorf("decode reactions: %w", err)
		}
	}
	if len(byDoc) > 0 {
		if err := json.Unmarshal(byDoc, &state.ReactionBy); err != nil {
			return fmt.Errorf("decode reaction_by: %w", err)
		}
	}
	return nil
}
