package models

import "time"

const (
	YouTubeStatusPending    = "PENDING"
	YouTubeStatusProcessing = "PROCESSING"
	YouTubeStatusCompleted  = "COMPLETED"
	YouTubeStatusFailed     = "FAILED"
)

type Episode struct {
	ID              string    `db:"id" json:"id"`
	PodcastID       string    `db:"podcast_id" json:"podcastId"`
	Title           string    `db:"title" json:"title"`
	Description     *string   `db:"description" json:"description"`
	AudioURL        string    `db:"audio_url" json:"audioUrl"`
	AudioSizeBytes  *int64    `db:"audio_size_bytes" json:"audioSizeBytes,omitempty"`
	DurationSeconds *int      `db:"duration_seconds" json:"durationSeconds,omitempty"`
	PublishedAt     time.Time `db:"published_at" json:"publishedAt"`
	YouTubeVideoID  *string   `db:"youtube_video_id" json:"youtubeVideoId,omitempty"`
	YouTubeStatus   *string   `db:"youtube_status" json:"youtubeStatus,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// EpisodeWithPodcast is an episode joined with the podcast that owns it.
type EpisodeWithPodcast struct {
	Episode
	PodcastTitle    string  `db:"podcast_title" json:"-"`
	PodcastSlug     string  `db:"podcast_slug" json:"-"`
	PodcastUserID   string  `db:"podcast_user_id" json:"-"`
	PodcastCoverURL *string `db:"podcast_cover_url" json:"-"`
	PlayCount       int     `db:"play_count" json:"playCount"`
}
