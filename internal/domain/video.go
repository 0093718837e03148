package domain

import "time"

// Video is a published video record. Owner is populated only by reads that
// join the owning user.
type Video struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	VideoFile   string        `json:"videoFile"`
	Thumbnail   string        `json:"thumbnail"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	Views       int64         `json:"views"`
	IsPublished bool          `json:"isPublished"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Owner       *OwnerSummary `json:"owner,omitempty"`
}

// OwnerSummary is the only owner projection embedded in video listings.
type OwnerSummary struct {
	FullName string `json:"fullName"`
	UserName string `json:"userName"`
	Avatar   string `json:"avatar"`
}
