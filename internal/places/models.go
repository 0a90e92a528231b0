package places

import "time"

const (
	FieldDone  = "done"
	FieldSaved = "saved"
)

// Place is a catalog entry users can mark as done or saved.
type Place struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	CreatedBy   string    `json:"created_by"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
	DistanceKm  float64   `json:"distance_km,omitempty"`
}

type SetFlagOptions struct {
	// SkipAchievements suppresses the achievement evaluation that normally
	// follows marking a place as done. Used by imports and backfills.
	SkipAchievements bool
}
