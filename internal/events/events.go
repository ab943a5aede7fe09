package events

import "time"

// Event types
const (
	UserRegistered = "user.registered"
	PostCreated    = "post.created"
)

// Stream names
const (
	UserEventsStream  = "user.events"
	TweetEventsStream = "tweet.events"
)

// Event is the envelope written to every stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserRegisteredEvent struct {
	UserID  string `json:"userId"`
	LoginID string `json:"loginId"`
	Email   string `json:"email"`
}

type PostCreatedEvent struct {
	PostID        string    `json:"postId"`
	AuthorLoginID string    `json:"authorLoginId"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"createdAt"`
}
