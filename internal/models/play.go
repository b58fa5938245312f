package models

import "time"

// Play is one anonymized listen. Identifier is a hash, never a raw address.
type Play struct {
	ID         string    `db:"id" json:"id"`
	EpisodeID  string    `db:"episode_id" json:"episodeId"`
	Identifier string    `db:"identifier" json:"-"`
	Referer    *string   `db:"referer" json:"referer,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type EpisodePlays struct {
	ID    string `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
	Plays int    `db:"plays" json:"plays"`
}

type DailyPlays struct {
	Day   string `db:"day" json:"day"`
	Plays int    `db:"plays" json:"plays"`
}

type DashboardOverview struct {
	TotalPodcasts int            `json:"totalPodcasts"`
	TotalEpisodes int            `json:"totalEpisodes"`
	TotalPlays    int            `json:"totalPlays"`
	TopEpisodes   []EpisodePlays `json:"topEpisodes"`
	PlaysPerDay   []DailyPlays   `json:"playsPerDay"`
}
