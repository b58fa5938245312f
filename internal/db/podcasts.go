package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"podhost/internal/models"
)

const podcastSelect = `
	SELECT p.id, p.user_id, p.title, p.description, p.slug, p.cover_url, p.category_id, p.created_at,
		u.email AS owner_email, u.name AS owner_name, c.name AS category_name
	FROM podcasts p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN categories c ON c.id = p.category_id`

func (s *Store) getPodcast(ctx context.Context, where string, arg any) (*models.Podcast, error) {
	p := &models.Podcast{}
	if err := s.db.GetContext(ctx, p, s.q(podcastSelect+" WHERE "+where), arg); err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetPodcastBySlug returns ErrNotFound for an unknown slug.
func (s *Store) GetPodcastBySlug(ctx context.Context, slug string) (*models.Podcast, error) {
	return s.getPodcast(ctx, "p.slug = ?", slug)
}

func (s *Store) GetPodcastByID(ctx context.Context, id string) (*models.Podcast, error) {
	return s.getPodcast(ctx, "p.id = ?", id)
}

// FindPodcastByTitle looks up one of userID's podcasts by exact title.
func (s *Store) FindPodcastByTitle(ctx context.Context, userID, title string) (*models.Podcast, error) {
	p := &models.Podcast{}
	err := s.db.GetContext(ctx, p, s.q(podcastSelect+" WHERE p.user_id = ? AND p.title = ?"), userID, title)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// ListPodcasts returns every podcast with its episode count, newest first.
func (s *Store) ListPodcasts(ctx context.Context) ([]models.PodcastSummary, error) {
	var podcasts []models.PodcastSummary
	err := s.db.SelectContext(ctx, &podcasts, `
		SELECT p.id, p.user_id, p.title, p.description, p.slug, p.cover_url, p.category_id, p.created_at,
			u.email AS owner_email, u.name AS owner_name, c.name AS category_name,
			(SELECT COUNT(*) FROM episodes e WHERE e.podcast_id = p.id) AS episode_count
		FROM podcasts p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN categories c ON c.id = p.category_id
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	return podcasts, nil
}

// CreatePodcast assigns ID and CreatedAt and inserts p. A taken slug yields
// ErrConflict.
func (s *Store) CreatePodcast(ctx context.Context, p *models.Podcast) error {
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO podcasts (id, user_id, title, description, slug, cover_url, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.UserID, p.Title, p.Description, p.Slug, p.CoverURL, p.CategoryID, p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create podcast: %w", err)
	}
	return nil
}

// UpdatePodcast writes the mutable columns of p.
func (s *Store) UpdatePodcast(ctx context.Context, p *models.Podcast) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE podcasts
		SET title = ?, description = ?, slug = ?, cover_url = ?, category_id = ?
		WHERE id = ?`),
		p.Title, p.Description, p.Slug, p.CoverURL, p.CategoryID, p.ID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update podcast %s: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePodcastCover sets only the cover image.
func (s *Store) UpdatePodcastCover(ctx context.Context, id, coverURL string) error {
	_, err := s.db.ExecContext(ctx, s.q("UPDATE podcasts SET cover_url = ? WHERE id = ?"), coverURL, id)
	if err != nil {
		return fmt.Errorf("update podcast cover %s: %w", id, err)
	}
	return nil
}

// DeletePodcast removes the podcast with its episodes and their plays.
func (s *Store) DeletePodcast(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete podcast: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmts := []string{
		"DELETE FROM plays WHERE episode_id IN (SELECT id FROM episodes WHERE podcast_id = ?)",
		"DELETE FROM episodes WHERE podcast_id = ?",
		"DELETE FROM podcasts WHERE id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
			return fmt.Errorf("delete podcast %s: %w", id, err)
		}
	}
	return tx.Commit()
}
