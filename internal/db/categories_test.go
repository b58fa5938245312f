package db_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podhost/internal/db"
	"podhost/internal/models"
	"podhost/internal/test"
)

func TestListCategoriesCountsPodcasts(t *testing.T) {
	store, mock := test.NewMockStore(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM podcasts p WHERE p.category_id = c.id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color", "created_at", "podcast_count"}).
			AddRow("c1", "Comedy", "#ff0000", created, 3).
			AddRow("c2", "Tech", "#3b82f6", created, 0))

	categories, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Comedy", categories[0].Name)
	assert.Equal(t, 3, categories[0].PodcastCount)
	assert.Equal(t, 0, categories[1].PodcastCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCategoriesEmpty(t *testing.T) {
	store, mock := test.NewMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM categories c")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color", "created_at", "podcast_count"}))

	categories, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, categories)
	assert.Empty(t, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCategoryConflict(t *testing.T) {
	store, mock := test.NewMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO categories")).
		WithArgs(sqlmock.AnyArg(), "Tech", "#3b82f6", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateCategory(context.Background(), &models.Category{Name: "Tech", Color: "#3b82f6"})
	assert.ErrorIs(t, err, db.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCategoryNotFound(t *testing.T) {
	store, mock := test.NewMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories SET name = $1, color = $2 WHERE id = $3")).
		WithArgs("Tech", "#000000", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateCategory(context.Background(), &models.Category{ID: "missing", Name: "Tech", Color: "#000000"})
	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryUnfilesPodcasts(t *testing.T) {
	store, mock := test.NewMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE podcasts SET category_id = NULL WHERE category_id = $1")).
		WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")).
		WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteCategory(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryNotFoundRollsBack(t *testing.T) {
	store, mock := test.NewMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE podcasts SET category_id = NULL")).
		WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories")).
		WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, store.DeleteCategory(context.Background(), "missing"), db.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
