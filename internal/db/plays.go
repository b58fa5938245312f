package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"podhost/internal/models"
)

const topEpisodesLimit = 5

// RecordPlay stores one anonymized listen.
func (s *Store) RecordPlay(ctx context.Context, episodeID, identifier string, referer *string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO plays (id, episode_id, identifier, referer, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		uuid.NewString(), episodeID, identifier, referer, s.now())
	if err != nil {
		return fmt.Errorf("record play of episode %s: %w", episodeID, err)
	}
	return nil
}

// DashboardOverview summarizes userID's podcasts. PlaysPerDay covers every
// day from since up to today, oldest first, including days without plays.
func (s *Store) DashboardOverview(ctx context.Context, userID string, since time.Time) (*models.DashboardOverview, error) {
	overview := &models.DashboardOverview{}

	if err := s.db.GetContext(ctx, &overview.TotalPodcasts,
		s.q("SELECT COUNT(*) FROM podcasts WHERE user_id = ?"), userID); err != nil {
		return nil, fmt.Errorf("count podcasts: %w", err)
	}
	if err := s.db.GetContext(ctx, &overview.TotalEpisodes, s.q(`
		SELECT COUNT(*) FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE p.user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("count episodes: %w", err)
	}
	if err := s.db.GetContext(ctx, &overview.TotalPlays, s.q(`
		SELECT COUNT(*) FROM plays pl
		JOIN episodes e ON e.id = pl.episode_id
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE p.user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("count plays: %w", err)
	}

	overview.TopEpisodes = []models.EpisodePlays{}
	if err := s.db.SelectContext(ctx, &overview.TopEpisodes, s.q(`
		SELECT e.id, e.title, COUNT(pl.id) AS plays
		FROM episodes e
		JOIN podcasts p ON p.id = e.podcast_id
		LEFT JOIN plays pl ON pl.episode_id = e.id
		WHERE p.user_id = ?
		GROUP BY e.id, e.title
		ORDER BY plays DESC, e.title ASC
		LIMIT ?`), userID, topEpisodesLimit); err != nil {
		return nil, fmt.Errorf("top episodes: %w", err)
	}

	// Day bucketing differs between postgres and sqlite, so it happens here.
	var stamps []time.Time
	if err := s.db.SelectContext(ctx, &stamps, s.q(`
		SELECT pl.created_at FROM plays pl
		JOIN episodes e ON e.id = pl.episode_id
		JOIN podcasts p ON p.id = e.podcast_id
		WHERE p.user_id = ? AND pl.created_at >= ?`), userID, since); err != nil {
		return nil, fmt.Errorf("plays per day: %w", err)
	}
	overview.PlaysPerDay = bucketByDay(stamps, since, s.now())

	return overview, nil
}

func bucketByDay(stamps []time.Time, since, now time.Time) []models.DailyPlays {
	const layout = "2006-01-02"
	counts := make(map[string]int, len(stamps))
	for _, t := range stamps {
		counts[t.UTC().Format(layout)]++
	}

	var days []models.DailyPlays
	start := since.UTC().Truncate(24 * time.Hour)
	for d := start; !d.After(now.UTC()); d = d.AddDate(0, 0, 1) {
		key := d.Format(layout)
		days = append(days, models.DailyPlays{Day: key, Plays: counts[key]})
	}
	return days
}
