package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"podhost/internal/config"
	"podhost/internal/db"
	"podhost/internal/logging"
	"podhost/internal/media"
	"podhost/internal/urlnorm"
	"podhost/internal/worker"
	"podhost/internal/youtube"
	"podhost/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const (
	retryBaseDelay = 5 * time.Minute
	retryMaxDelay  = 24 * time.Hour
)

// retryDelay backs off exponentially: 5min, 10min, 20min, ... capped at 24h.
func retryDelay(logger *zap.Logger) asynq.RetryDelayFunc {
	return func(n int, err error, task *asynq.Task) time.Duration {
		delay := retryBaseDelay
		for i := 0; i < n; i++ {
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
				break
			}
		}
		logger.Warn("Task failed, scheduling retry",
			zap.String("type", task.Type()),
			zap.Int("attempt", n+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		return delay
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.YouTubeEnabled() {
		logger.Fatal("YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET are required by the worker")
	}

	store, err := db.Open(context.Background(), cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()

	uploads, err := media.NewServer(cfg.UploadsDir, cfg.MaxUploadBytes, logger)
	if err != nil {
		logger.Fatal("Failed to open uploads dir", zap.Error(err))
	}

	redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := asynq.NewClient(redis)
	defer client.Close()

	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 1, // rendering and uploading are heavy, one at a time
		Queues: map[string]int{
			"high":    2,
			"default": 1,
		},
		RetryDelayFunc: retryDelay(logger),
		Logger:         logger.Sugar(),
	})

	taskHandler := worker.NewTaskHandler(worker.Options{
		Store:       store,
		Uploader:    youtube.NewClient(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeRedirectURL),
		AsynqClient: client,
		Media:       uploads,
		Normalizer:  urlnorm.New(cfg.OwnHosts...),
		BaseURL:     cfg.PublicBaseURL,
		FFmpegPath:  cfg.FFmpegPath,
		Language:    cfg.FeedLanguage,
		Logger:      logger,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePublishEpisode, taskHandler.HandlePublishEpisodeTask)
	mux.HandleFunc(tasks.TypeRetryFailedPublishes, taskHandler.HandleRetryFailedPublishesTask)

	logger.Info("Worker starting", zap.String("commit", CommitSHA))
	if err := srv.Run(mux); err != nil {
		logger.Fatal("could not run server", zap.Error(err))
	}
}
