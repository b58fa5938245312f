package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"podhost/internal/models"
)

// ListCategories returns every category by name with its podcast count.
func (s *Store) ListCategories(ctx context.Context) ([]models.CategorySummary, error) {
	categories := []models.CategorySummary{}
	err := s.db.SelectContext(ctx, &categories, `
		SELECT c.id, c.name, c.color, c.created_at,
			(SELECT COUNT(*) FROM podcasts p WHERE p.category_id = c.id) AS podcast_count
		FROM categories c
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c := &models.Category{}
	err := s.db.GetContext(ctx, c, s.q("SELECT id, name, color, created_at FROM categories WHERE id = ?"), id)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// CreateCategory assigns ID and CreatedAt and inserts c. A taken name yields
// ErrConflict.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO categories (id, name, color, created_at)
		VALUES (?, ?, ?, ?)`),
		c.ID, c.Name, c.Color, c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *models.Category) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE categories SET name = ?, color = ? WHERE id = ?"), c.Name, c.Color, c.ID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update category %s: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory unfiles the category's podcasts and removes it.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE podcasts SET category_id = NULL WHERE category_id = ?"), id); err != nil {
		return fmt.Errorf("unfile podcasts of category %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM categories WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
