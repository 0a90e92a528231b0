package social

import "time"

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

const (
	SubjectFollowCreated = "follow.created"
	SubjectFollowDeleted = "follow.deleted"
)

// FollowEdge is one side of a follow relationship, keyed by the counterpart.
type FollowEdge struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FollowRequest struct {
	ID        string    `json:"id"`
	TargetID  string    `json:"target_id"`
	FromUID   string    `json:"from_uid"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// FollowEvent is published when the followers-side edge appears or disappears.
type FollowEvent struct {
	FromUID string `json:"from_uid"`
	ToUID   string `json:"to_uid"`
}
