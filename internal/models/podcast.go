package models

import "time"

// Podcast groups episodes under one feed. Slug is unique and must not change
// once the feed has been published.
type Podcast struct {
	ID          string  `db:"id" json:"id"`
	UserID      string  `db:"user_id" json:"userId"`
	Title       string  `db:"title" json:"title"`
	Description *string `db:"description" json:"description"`
	Slug        string  `db:"slug" json:"slug"`
	CoverURL    *string `db:"cover_url" json:"coverUrl"`
	CategoryID  *string `db:"category_id" json:"categoryId"`
	// CategoryName is filled by reads that join categories.
	CategoryName *string   `db:"category_name" json:"categoryName,omitempty"`
	OwnerEmail   *string   `db:"owner_email" json:"ownerEmail,omitempty"`
	OwnerName    *string   `db:"owner_name" json:"ownerName,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// PodcastSummary is a podcast row with its episode count.
type PodcastSummary struct {
	Podcast
	EpisodeCount int `db:"episode_count" json:"episodeCount"`
}
