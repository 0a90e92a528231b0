package profile

import "time"

// Profile is the users row. The counters are maintained by follow events and
// may briefly lag the edge tables.
type Profile struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	IsPrivate      bool      `json:"is_private"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Update carries the fields a user may change; nil leaves the field as is.
type Update struct {
	DisplayName *string `json:"display_name"`
	IsPrivate   *bool   `json:"is_private"`
}
