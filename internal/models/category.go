package models

import "time"

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#3b82f6"

// Category groups podcasts by topic. Names are unique.
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CategorySummary is a category with the number of podcasts filed under it.
type CategorySummary struct {
	Category
	PodcastCount int `db:"podcast_count" json:"podcastCount"`
}
