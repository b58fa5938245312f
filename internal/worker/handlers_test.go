package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"podhost/internal/db"
	"podhost/internal/media"
	"podhost/internal/models"
	"podhost/internal/test"
	"podhost/internal/urlnorm"
	"podhost/internal/youtube"
	"podhost/pkg/tasks"
)

type fakeStore struct {
	mu       sync.Mutex
	episodes map[string]*models.EpisodeWithPodcast
	accounts map[string]*models.YouTubeAccount
	statuses []string
	videoID  string
	tokens   []string
}

func (s *fakeStore) GetEpisodeWithPodcast(_ context.Context, id string) (*models.EpisodeWithPodcast, error) {
	if ep, ok := s.episodes[id]; ok {
		return ep, nil
	}
	return nil, db.ErrNotFound
}

func (s *fakeStore) ListEpisodesByYouTubeStatus(context.Context, string) ([]models.EpisodeWithPodcast, error) {
	return nil, nil
}

func (s *fakeStore) UpdateEpisodeYouTubeStatus(_ context.Context, _ string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *fakeStore) CompleteYouTubePublish(_ context.Context, _ string, videoID string) error {
	s.videoID = videoID
	s.statuses = append(s.statuses, models.YouTubeStatusCompleted)
	return nil
}

func (s *fakeStore) GetYouTubeAccount(_ context.Context, userID string) (*models.YouTubeAccount, error) {
	if acc, ok := s.accounts[userID]; ok {
		return acc, nil
	}
	return nil, db.ErrNotFound
}

func (s *fakeStore) UpdateYouTubeTokens(_ context.Context, _ string, accessToken string, _ *string, _ *time.Time) error {
	s.tokens = append(s.tokens, accessToken)
	return nil
}

type fakeUploader struct {
	video   youtube.Video
	body    string
	refresh bool
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, tok *oauth2.Token, v youtube.Video, r io.Reader) (string, *oauth2.Token, error) {
	if u.err != nil {
		return "", nil, u.err
	}
	b, _ := io.ReadAll(r)
	u.video, u.body = v, string(b)
	if u.refresh {
		return "video-1", &oauth2.Token{AccessToken: "refreshed"}, nil
	}
	return "video-1", tok, nil
}

func mockFFmpeg(t *testing.T, fail bool) {
	t.Helper()
	original := execCommandContext
	t.Cleanup(func() { execCommandContext = original })

	execCommandContext = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, arg...)
		cmd := exec.Command(os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "FFMPEG_ARGS=" + strings.Join(arg, "\x1f")}
		if fail {
			cmd.Env = append(cmd.Env, "FFMPEG_FAIL=1")
		}
		return cmd
	}
}

func newFixture(t *testing.T, coverURL *string) (*TaskHandler, *fakeStore, *fakeUploader) {
	t.Helper()
	uploads, err := media.NewServer(t.TempDir(), 0, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(uploads.Root(), "1700000000000-ep.mp3"), []byte("audio"), 0o644))

	desc := "About the episode"
	refresh := "refresh"
	store := &fakeStore{
		episodes: map[string]*models.EpisodeWithPodcast{
			"e1": {
				Episode: models.Episode{
					ID:          "e1",
					Title:       "Episode One",
					Description: &desc,
					AudioURL:    "https://podhost.example/uploads/file/1700000000000-ep.mp3",
				},
				PodcastTitle:    "Tech Talk",
				PodcastUserID:   "u1",
				PodcastCoverURL: coverURL,
			},
		},
		accounts: map[string]*models.YouTubeAccount{
			"u1": {UserID: "u1", AccessToken: "access", RefreshToken: &refresh},
		},
	}
	uploader := &fakeUploader{}

	h := NewTaskHandler(Options{
		Store:      store,
		Uploader:   uploader,
		Media:      uploads,
		Normalizer: urlnorm.New("podhost.example"),
		BaseURL:    "https://podhost.example",
		Language:   "de",
		Logger:     zap.NewNop(),
	})
	return h, store, uploader
}

func publishTask(t *testing.T) *asynq.Task {
	task, err := tasks.NewPublishEpisodeTask("e1", "u1")
	require.NoError(t, err)
	return task
}

func TestHandlePublishEpisodeTask(t *testing.T) {
	mockFFmpeg(t, false)
	h, store, uploader := newFixture(t, nil)

	err := h.HandlePublishEpisodeTask(context.Background(), publishTask(t))
	require.NoError(t, err)

	assert.Equal(t, []string{models.YouTubeStatusProcessing, models.YouTubeStatusCompleted}, store.statuses)
	assert.Equal(t, "video-1", store.videoID)
	assert.Equal(t, "fake mp4", uploader.body)
	assert.Equal(t, "Episode One", uploader.video.Title)
	assert.Equal(t, "About the episode\n\nPodcast: Tech Talk", uploader.video.Description)
	assert.Equal(t, []string{"Tech Talk", "podcast", "audio"}, uploader.video.Tags)
	assert.Equal(t, "de", uploader.video.Language)
	assert.Empty(t, store.tokens)
}

func TestHandlePublishEpisodeTaskDownloadsCover(t *testing.T) {
	mockFFmpeg(t, false)
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("png"))
	}))
	defer srv.Close()

	cover := srv.URL + "/cover.png"
	h, store, _ := newFixture(t, &cover)

	require.NoError(t, h.HandlePublishEpisodeTask(context.Background(), publishTask(t)))
	assert.Equal(t, 1, hits)
	assert.Equal(t, "video-1", store.videoID)
}

func TestHandlePublishEpisodeTaskPersistsRefreshedToken(t *testing.T) {
	mockFFmpeg(t, false)
	h, store, uploader := newFixture(t, nil)
	uploader.refresh = true

	require.NoError(t, h.HandlePublishEpisodeTask(context.Background(), publishTask(t)))
	assert.Equal(t, []string{"refreshed"}, store.tokens)
}

func TestHandlePublishEpisodeTaskFFmpegFailure(t *testing.T) {
	mockFFmpeg(t, true)
	h, store, _ := newFixture(t, nil)

	err := h.HandlePublishEpisodeTask(context.Background(), publishTask(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg")
	assert.Equal(t, []string{models.YouTubeStatusProcessing, models.YouTubeStatusFailed}, store.statuses)
}

func TestHandlePublishEpisodeTaskUploadFailure(t *testing.T) {
	mockFFmpeg(t, false)
	h, store, uploader := newFixture(t, nil)
	uploader.err = errors.New("quota exceeded")

	err := h.HandlePublishEpisodeTask(context.Background(), publishTask(t))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, models.YouTubeStatusFailed, store.statuses[len(store.statuses)-1])
}

func TestHandlePublishEpisodeTaskUnknownEpisode(t *testing.T) {
	h, store, _ := newFixture(t, nil)
	task, err := tasks.NewPublishEpisodeTask("missing", "u1")
	require.NoError(t, err)

	err = h.HandlePublishEpisodeTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, store.statuses)
}

func TestHandlePublishEpisodeTaskDisconnectedAccount(t *testing.T) {
	h, store, _ := newFixture(t, nil)
	delete(store.accounts, "u1")

	err := h.HandlePublishEpisodeTask(context.Background(), publishTask(t))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, []string{models.YouTubeStatusFailed}, store.statuses)
}

func TestHandleRetryFailedPublishesTask(t *testing.T) {
	store, mock := test.NewMockStore(t)
	enqueuer := &test.MockTaskEnqueuer{}
	h := NewTaskHandler(Options{Store: store, AsynqClient: enqueuer, Logger: zap.NewNop()})

	published := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "podcast_id", "title", "description", "audio_url", "audio_size_bytes",
		"duration_seconds", "published_at", "youtube_video_id", "youtube_status", "created_at",
		"podcast_title", "podcast_slug", "podcast_user_id", "podcast_cover_url", "play_count"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.youtube_status = $1")).
		WithArgs(models.YouTubeStatusFailed).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e1", "p1", "One", nil, "/uploads/file/1.mp3", nil, nil, published, nil,
				models.YouTubeStatusFailed, published, "Show", "show", "u1", nil, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE episodes SET youtube_status = $1 WHERE id = $2")).
		WithArgs(models.YouTubeStatusPending, "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, h.HandleRetryFailedPublishesTask(context.Background(), asynq.NewTask(tasks.TypeRetryFailedPublishes, nil)))

	require.Len(t, enqueuer.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypePublishEpisode, enqueuer.EnqueuedTasks[0].Type())
	var p tasks.PublishEpisodeTaskPayload
	require.NoError(t, json.Unmarshal(enqueuer.EnqueuedTasks[0].Payload(), &p))
	assert.Equal(t, "e1", p.EpisodeID)
	assert.Equal(t, "u1", p.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestHelperProcess isn't a real test. It's used as a helper for tests that
// need to mock exec.Command.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("FFMPEG_FAIL") == "1" {
		fmt.Fprintln(os.Stderr, "Invalid data found when processing input")
		os.Exit(1)
	}
	args := strings.Split(os.Getenv("FFMPEG_ARGS"), "\x1f")
	output := args[len(args)-1]
	if err := os.WriteFile(output, []byte("fake mp4"), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
