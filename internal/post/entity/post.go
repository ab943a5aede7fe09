package entity

import "time"

// Reply is one entry of a post's reply thread.
type Reply struct {
	AuthorLoginID string    `json:"authorLoginId" bson:"authorLoginId"`
	AuthorName    string    `json:"authorName" bson:"authorName"`
	Body          string    `json:"body" bson:"body"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// Post is a tweet document in the posts collection. AuthorName and
// AuthorLoginID are copies taken at post time. CreatedAt never changes after
// creation and Version is maintained by the store layer.
type Post struct {
	ID            string    `json:"id" bson:"_id"`
	AuthorName    string    `json:"authorName" bson:"authorName"`
	AuthorLoginID string    `json:"authorLoginId" bson:"authorLoginId"`
	Body          string    `json:"body" bson:"body"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	LikeCount     int64     `json:"likeCount" bson:"likeCount"`
	LikedBy       []string  `json:"likedBy" bson:"likedBy"`
	Replies       []Reply   `json:"replies" bson:"replies"`
	Version       int64     `json:"version" bson:"version"`
}

func (p *Post) GetID() string   { return p.ID }
func (p *Post) SetID(id string) { p.ID = id }
