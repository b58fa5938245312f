package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"podhost/internal/models"
)

const episodeColumns = `e.id, e.podcast_id, e.title, e.description, e.audio_url, e.audio_size_bytes,
	e.duration_seconds, e.published_at, e.youtube_video_id, e.youtube_status, e.created_at`

const episodeWithPodcastSelect = `
	SELECT ` + episodeColumns + `,
		p.title AS podcast_title, p.slug AS podcast_slug, p.user_id AS podcast_user_id,
		p.cover_url AS podcast_cover_url,
		(SELECT COUNT(*) FROM plays pl WHERE pl.episode_id = e.id) AS play_count
	FROM episodes e
	JOIN podcasts p ON p.id = e.podcast_id`

// ListEpisodesByPodcast returns a podcast's episodes newest first. A limit
// of zero or less returns all of them.
func (s *Store) ListEpisodesByPodcast(ctx context.Context, podcastID string, limit int) ([]models.Episode, error) {
	query := "SELECT " + episodeColumns + " FROM episodes e WHERE e.podcast_id = ? ORDER BY e.published_at DESC"
	args := []any{podcastID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var episodes []models.Episode
	if err := s.db.SelectContext(ctx, &episodes, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("list episodes of podcast %s: %w", podcastID, err)
	}
	return episodes, nil
}

// ListEpisodesWithPodcast returns every episode joined with its podcast and
// play count, newest first.
func (s *Store) ListEpisodesWithPodcast(ctx context.Context) ([]models.EpisodeWithPodcast, error) {
	var episodes []models.EpisodeWithPodcast
	err := s.db.SelectContext(ctx, &episodes, episodeWithPodcastSelect+" ORDER BY e.published_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	return episodes, nil
}

func (s *Store) GetEpisodeWithPodcast(ctx context.Context, id string) (*models.EpisodeWithPodcast, error) {
	e := &models.EpisodeWithPodcast{}
	if err := s.db.GetContext(ctx, e, s.q(episodeWithPodcastSelect+" WHERE e.id = ?"), id); err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// ListEpisodesByYouTubeStatus is used by the scheduler to find publishes
// worth retrying.
func (s *Store) ListEpisodesByYouTubeStatus(ctx context.Context, status string) ([]models.EpisodeWithPodcast, error) {
	var episodes []models.EpisodeWithPodcast
	err := s.db.SelectContext(ctx, &episodes,
		s.q(episodeWithPodcastSelect+" WHERE e.youtube_status = ? ORDER BY e.published_at DESC"), status)
	if err != nil {
		return nil, fmt.Errorf("list episodes with youtube status %s: %w", status, err)
	}
	return episodes, nil
}

// CreateEpisode assigns ID and CreatedAt and inserts e. A zero PublishedAt
// is set to the creation time.
func (s *Store) CreateEpisode(ctx context.Context, e *models.Episode) error {
	e.ID = uuid.NewString()
	e.CreatedAt = s.now()
	if e.PublishedAt.IsZero() {
		e.PublishedAt = e.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO episodes (id, podcast_id, title, description, audio_url, audio_size_bytes,
			duration_seconds, published_at, youtube_video_id, youtube_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.PodcastID, e.Title, e.Description, e.AudioURL, e.AudioSizeBytes,
		e.DurationSeconds, e.PublishedAt, e.YouTubeVideoID, e.YouTubeStatus, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create episode: %w", err)
	}
	return nil
}

// DeleteEpisode removes an episode and its plays.
func (s *Store) DeleteEpisode(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete episode: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM plays WHERE episode_id = ?"), id); err != nil {
		return fmt.Errorf("delete plays of episode %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM episodes WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete episode %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) UpdateEpisodeYouTubeStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, s.q("UPDATE episodes SET youtube_status = ? WHERE id = ?"), status, id)
	if err != nil {
		return fmt.Errorf("update youtube status of episode %s: %w", id, err)
	}
	return nil
}

// CompleteYouTubePublish stores the uploaded video id and marks the episode
// as published.
func (s *Store) CompleteYouTubePublish(ctx context.Context, id, videoID string) error {
	_, err := s.db.ExecContext(ctx, s.q("UPDATE episodes SET youtube_video_id = ?, youtube_status = ? WHERE id = ?"),
		videoID, models.YouTubeStatusCompleted, id)
	if err != nil {
		return fmt.Errorf("complete youtube publish of episode %s: %w", id, err)
	}
	return nil
}
