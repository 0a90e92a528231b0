package stream

// Topic names. Each is suffixed with the owning user's id.
const (
	TopicPlaces    = "places:"
	TopicFollowers = "followers:"
	TopicFollowing = "following:"
	TopicRequests  = "requests:"
)

func PlacesTopic(userID string) string    { return TopicPlaces + userID }
func FollowersTopic(userID string) string { return TopicFollowers + userID }
func FollowingTopic(userID string) string { return TopicFollowing + userID }
func RequestsTopic(userID string) string  { return TopicRequests + userID }
