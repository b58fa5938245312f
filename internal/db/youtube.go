package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"podhost/internal/models"
)

const youtubeAccountColumns = `id, user_id, channel_id, channel_title, access_token, refresh_token,
	expires_at, created_at`

func (s *Store) GetYouTubeAccount(ctx context.Context, userID string) (*models.YouTubeAccount, error) {
	acc := &models.YouTubeAccount{}
	err := s.db.GetContext(ctx, acc,
		s.q("SELECT "+youtubeAccountColumns+" FROM youtube_accounts WHERE user_id = ?"), userID)
	if err != nil {
		return nil, notFound(err)
	}
	return acc, nil
}

// UpsertYouTubeAccount links a channel to acc.UserID, replacing any earlier
// link. A refresh token is only overwritten when a new one is supplied.
func (s *Store) UpsertYouTubeAccount(ctx context.Context, acc *models.YouTubeAccount) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO youtube_accounts (`+youtubeAccountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			channel_title = excluded.channel_title,
			access_token = excluded.access_token,
			refresh_token = COALESCE(excluded.refresh_token, youtube_accounts.refresh_token),
			expires_at = excluded.expires_at`),
		acc.ID, acc.UserID, acc.ChannelID, acc.ChannelTitle, acc.AccessToken, acc.RefreshToken,
		acc.ExpiresAt, acc.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert youtube account: %w", err)
	}
	return nil
}

// UpdateYouTubeTokens persists tokens refreshed during an upload.
func (s *Store) UpdateYouTubeTokens(ctx context.Context, userID, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		UPDATE youtube_accounts
		SET access_token = ?, refresh_token = COALESCE(?, refresh_token), expires_at = ?
		WHERE user_id = ?`),
		accessToken, refreshToken, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("update youtube tokens: %w", err)
	}
	return nil
}

func (s *Store) DeleteYouTubeAccount(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, s.q("DELETE FROM youtube_accounts WHERE user_id = ?"), userID)
	if err != nil {
		return fmt.Errorf("delete youtube account: %w", err)
	}
	return nil
}
