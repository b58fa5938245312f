package models

import "time"

// YouTubeAccount holds the OAuth tokens a user granted for publishing.
type YouTubeAccount struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"-"`
	ChannelID    string     `db:"channel_id" json:"channelId"`
	ChannelTitle string     `db:"channel_title" json:"channelTitle"`
	AccessToken  string     `db:"access_token" json:"-"`
	RefreshToken *string    `db:"refresh_token" json:"-"`
	ExpiresAt    *time.Time `db:"expires_at" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"connectedAt"`
}
