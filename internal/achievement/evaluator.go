package achievement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"backend-urbexqueens/internal/db"
	"backend-urbexqueens/internal/placestate"
)

// Milestone is earned once a user has marked Threshold distinct places done.
type Milestone struct {
	Threshold int
	Code      string
}

var DefaultMilestones = []Milestone{
	{Threshold: 1, Code: "first_exploration"},
	{Threshold: 10, Code: "explorer"},
	{Threshold: 50, Code: "urban_legend"},
}

type PlaceReader interface {
	Get(ctx context.Context, userID string) (placestate.Raw, error)
}

type Evaluator struct {
	db         db.Querier
	places     PlaceReader
	milestones []Milestone
}

func NewEvaluator(db db.Querier, places PlaceReader) *Evaluator {
	return &Evaluator{db: db, places: places, milestones: DefaultMilestones}
}

// Earned lists the milestone codes reached by done places.
func Earned(milestones []Milestone, done int) []string {
	var codes []string
	for _, m := range milestones {
		if done >= m.Threshold {
			codes = append(codes, m.Code)
		}
	}
	return codes
}

// Evaluate awards every reached milestone. Awards already held are kept as is.
func (e *Evaluator) Evaluate(ctx context.Context, userID string) error {
	raw, err := e.places.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("read places: %w", err)
	}

	counts := placestate.CountStates(raw)
	for _, code := range Earned(e.milestones, counts.Done) {
		tag, err := e.db.Exec(ctx, `
			INSERT INTO user_achievements (user_id, code)
			VALUES ($1,$2)
			ON CONFLICT (user_id, code) DO NOTHING
		`, userID, code)
		if err != nil {
			return fmt.Errorf("award %s: %w", code, err)
		}
		if tag.RowsAffected() > 0 {
			slog.Info("achievement earned", "user_id", userID, "code", code, "done", counts.Done)
		}
	}
	return nil
}

type Award struct {
	Code     string    `json:"code"`
	EarnedAt time.Time `json:"earned_at"`
}

func (e *Evaluator) List(ctx context.Context, userID string) ([]Award, error) {
	rows, err := e.db.Query(ctx, `
		SELECT code, earned_at FROM user_achievements
		WHERE user_id=$1
		ORDER BY earned_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	awards := []Award{}
	for rows.Next() {
		var a Award
		if err := rows.Scan(&a.Code, &a.EarnedAt); err != nil {
			return nil, err
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}
