package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"podhost/internal/db"
	"podhost/internal/media"
	"podhost/internal/models"
	"podhost/internal/urlnorm"
	"podhost/internal/youtube"
	"podhost/pkg/tasks"
)

var execCommandContext = exec.CommandContext

// Store is the part of the datastore the publish tasks use.
type Store interface {
	GetEpisodeWithPodcast(ctx context.Context, id string) (*models.EpisodeWithPodcast, error)
	ListEpisodesByYouTubeStatus(ctx context.Context, status string) ([]models.EpisodeWithPodcast, error)
	UpdateEpisodeYouTubeStatus(ctx context.Context, id, status string) error
	CompleteYouTubePublish(ctx context.Context, id, videoID string) error
	GetYouTubeAccount(ctx context.Context, userID string) (*models.YouTubeAccount, error)
	UpdateYouTubeTokens(ctx context.Context, userID, accessToken string, refreshToken *string, expiresAt *time.Time) error
}

// Uploader publishes a rendered video.
type Uploader interface {
	Upload(ctx context.Context, tok *oauth2.Token, v youtube.Video, media io.Reader) (string, *oauth2.Token, error)
}

// Options configures a TaskHandler.
type Options struct {
	Store       Store
	Uploader    Uploader
	AsynqClient tasks.TaskEnqueuer
	// Media resolves /uploads/file/ URLs to local files.
	Media      *media.Server
	Normalizer *urlnorm.Normalizer
	BaseURL    string
	FFmpegPath string
	Language   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type TaskHandler struct {
	store       Store
	uploader    Uploader
	asynqClient tasks.TaskEnqueuer
	media       *media.Server
	normalizer  *urlnorm.Normalizer
	baseURL     string
	ffmpegPath  string
	language    string
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewTaskHandler(opts Options) *TaskHandler {
	h := &TaskHandler{
		store:       opts.Store,
		uploader:    opts.Uploader,
		asynqClient: opts.AsynqClient,
		media:       opts.Media,
		normalizer:  opts.Normalizer,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		ffmpegPath:  opts.FFmpegPath,
		language:    opts.Language,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
	}
	if h.ffmpegPath == "" {
		h.ffmpegPath = "ffmpeg"
	}
	if h.httpClient == nil {
		h.httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

func (h *TaskHandler) HandlePublishEpisodeTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.PublishEpisodeTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}
	log := h.logger.With(zap.String("episode_id", p.EpisodeID))

	episode, err := h.store.GetEpisodeWithPodcast(ctx, p.EpisodeID)
	if errors.Is(err, db.ErrNotFound) {
		log.Warn("Episode vanished before publishing")
		return fmt.Errorf("episode %s not found: %w", p.EpisodeID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to get episode: %w", err)
	}

	account, err := h.store.GetYouTubeAccount(ctx, p.UserID)
	if errors.Is(err, db.ErrNotFound) {
		log.Warn("YouTube account disconnected before publishing")
		h.setStatus(ctx, episode.ID, models.YouTubeStatusFailed)
		return fmt.Errorf("no youtube account for user %s: %w", p.UserID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to get youtube account: %w", err)
	}

	if err := h.store.UpdateEpisodeYouTubeStatus(ctx, episode.ID, models.YouTubeStatusProcessing); err != nil {
		return fmt.Errorf("failed to update episode status to processing: %w", err)
	}

	log.Info("Publishing episode to YouTube")
	videoID, err := h.publish(ctx, episode, account)
	if err != nil {
		status := models.YouTubeStatusFailed
		if retryPending(ctx) {
			status = models.YouTubeStatusPending
		}
		log.Error("Failed to publish episode", zap.Error(err), zap.String("status", status))
		h.setStatus(ctx, episode.ID, status)
		return err
	}

	if err := h.store.CompleteYouTubePublish(ctx, episode.ID, videoID); err != nil {
		return fmt.Errorf("failed to store youtube video id: %w", err)
	}
	log.Info("Published episode to YouTube", zap.String("video_id", videoID))
	return nil
}

// retryPending reports whether asynq will run the task again after a failure.
func retryPending(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return ok && retried < maxRetry
}

func (h *TaskHandler) setStatus(ctx context.Context, id, status string) {
	if err := h.store.UpdateEpisodeYouTubeStatus(ctx, id, status); err != nil {
		h.logger.Error("Failed to update youtube status",
			zap.String("episode_id", id), zap.String("status", status), zap.Error(err))
	}
}

func (h *TaskHandler) publish(ctx context.Context, episode *models.EpisodeWithPodcast, account *models.YouTubeAccount) (string, error) {
	workDir, err := os.MkdirTemp("", "podhost-publish-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	audioPath, err := h.fetch(ctx, episode.AudioURL, filepath.Join(workDir, "audio"))
	if err != nil {
		return "", fmt.Errorf("failed to fetch audio: %w", err)
	}

	coverPath := ""
	if episode.PodcastCoverURL != nil && *episode.PodcastCoverURL != "" {
		coverPath, err = h.fetch(ctx, *episode.PodcastCoverURL, filepath.Join(workDir, "cover"))
		if err != nil {
			h.logger.Warn("Failed to fetch cover image, using black background",
				zap.String("episode_id", episode.ID), zap.Error(err))
			coverPath = ""
		}
	}

	videoPath := filepath.Join(workDir, "video.mp4")
	if err := h.render(ctx, audioPath, coverPath, videoPath); err != nil {
		return "", err
	}

	video, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open rendered video: %w", err)
	}
	defer video.Close()

	videoID, latest, err := h.uploader.Upload(ctx, tokenOf(account), h.videoFor(episode), video)
	if err != nil {
		return "", err
	}
	h.persistToken(ctx, account, latest)
	return videoID, nil
}

func (h *TaskHandler) videoFor(episode *models.EpisodeWithPodcast) youtube.Video {
	description := ""
	if episode.Description != nil {
		description = *episode.Description
	}
	if description != "" {
		description += "\n\n"
	}
	description += "Podcast: " + episode.PodcastTitle
	return youtube.Video{
		Title:       episode.Title,
		Description: description,
		Tags:        []string{episode.PodcastTitle, "podcast", "audio"},
		Language:    h.language,
	}
}

func tokenOf(account *models.YouTubeAccount) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: account.AccessToken, TokenType: "Bearer"}
	if account.RefreshToken != nil {
		tok.RefreshToken = *account.RefreshToken
	}
	if account.ExpiresAt != nil {
		tok.Expiry = *account.ExpiresAt
	}
	return tok
}

func (h *TaskHandler) persistToken(ctx context.Context, account *models.YouTubeAccount, tok *oauth2.Token) {
	if tok == nil || tok.AccessToken == account.AccessToken {
		return
	}
	var refresh *string
	if tok.RefreshToken != "" {
		refresh = &tok.RefreshToken
	}
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		expiry = &tok.Expiry
	}
	if err := h.store.UpdateYouTubeTokens(ctx, account.UserID, tok.AccessToken, refresh, expiry); err != nil {
		h.logger.Error("Failed to persist refreshed youtube token", zap.String("user_id", account.UserID), zap.Error(err))
	}
}

// fetch makes raw available as a local file. Objects in our own uploads
// directory are used in place; anything else is downloaded to dest.
func (h *TaskHandler) fetch(ctx context.Context, raw, dest string) (string, error) {
	ref := h.normalizer.Normalize(raw)
	if ref == "" {
		return "", fmt.Errorf("unsupported url %q", raw)
	}

	if strings.HasPrefix(ref, media.FilePathPrefix) && h.media != nil {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", ref, err)
		}
		path, err := h.media.Resolve(strings.TrimPrefix(u.Path, media.FilePathPrefix))
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}

	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		ref = h.baseURL + ref
	}
	return dest, h.download(ctx, ref, dest)
}

func (h *TaskHandler) download(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download %s: unexpected status %s", src, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("download %s: %w", src, err)
	}
	return f.Close()
}

// render muxes audio with a still image, or a black frame when coverPath is
// empty, into a 720p MP4.
func (h *TaskHandler) render(ctx context.Context, audioPath, coverPath, videoPath string) error {
	args := []string{"-y"}
	if coverPath != "" {
		args = append(args, "-loop", "1", "-i", coverPath)
	} else {
		args = append(args, "-f", "lavfi", "-i", "color=c=black:s=1280x720:r=1")
	}
	args = append(args,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", "128k",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=1280:720",
		"-shortest",
		videoPath,
	)

	cmd := execCommandContext(ctx, h.ffmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		h.logger.Error("ffmpeg failed", zap.Error(err), zap.ByteString("output", output))
		return fmt.Errorf("failed to execute ffmpeg command: %w", err)
	}
	return nil
}

// HandleRetryFailedPublishesTask re-enqueues every publish that ran out of
// retries.
func (h *TaskHandler) HandleRetryFailedPublishesTask(ctx context.Context, t *asynq.Task) error {
	h.logger.Info("Retrying failed YouTube publishes")

	episodes, err := h.store.ListEpisodesByYouTubeStatus(ctx, models.YouTubeStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to list failed publishes: %w", err)
	}

	for _, ep := range episodes {
		task, err := tasks.NewPublishEpisodeTask(ep.ID, ep.PodcastUserID)
		if err != nil {
			h.logger.Error("Failed to create publish task", zap.String("episode_id", ep.ID), zap.Error(err))
			continue
		}
		if _, err := h.asynqClient.Enqueue(task); err != nil {
			h.logger.Error("Failed to enqueue publish task", zap.String("episode_id", ep.ID), zap.Error(err))
			continue
		}
		h.setStatus(ctx, ep.ID, models.YouTubeStatusPending)
	}

	h.logger.Info("Finished retrying failed YouTube publishes", zap.Int("count", len(episodes)))
	return nil
}
