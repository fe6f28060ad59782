package entity

import (
	"time"
)

// Post is a single feed entry. CreatorID never changes after creation.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url"`
	CreatorID string    `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreatorSummary is the public slice of a user attached to feed
// responses and broadcast events.
type CreatorSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
