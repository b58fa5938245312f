package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"podhost/internal/config"
	"podhost/internal/db"
	"podhost/internal/feed"
	"podhost/internal/handlers"
	"podhost/internal/logging"
	"podhost/internal/media"
	"podhost/internal/middleware"
	"podhost/internal/playtrack"
	"podhost/internal/urlnorm"
	"podhost/internal/youtube"
	"podhost/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

// App holds the dependencies of the HTTP server.
type App struct {
	cfg         *config.Config
	store       handlers.Store
	asynqClient tasks.TaskEnqueuer
	logger      *zap.Logger
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer client.Close()

	app := &App{cfg: cfg, store: store, asynqClient: client, logger: logger}
	handler, err := app.handler()
	if err != nil {
		logger.Fatal("Failed to build handler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("commit", CommitSHA))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// handler wires the feed renderer, media server and API routes.
func (a *App) handler() (http.Handler, error) {
	uploads, err := media.NewServer(a.cfg.UploadsDir, a.cfg.MaxUploadBytes, a.logger)
	if err != nil {
		return nil, err
	}
	normalizer := urlnorm.New(a.cfg.OwnHosts...)

	opts := handlers.Options{
		Store: a.store,
		Renderer: &feed.Renderer{
			BaseURL:      a.cfg.PublicBaseURL,
			Language:     a.cfg.FeedLanguage,
			CatalogTitle: a.cfg.CatalogTitle,
			Normalizer:   normalizer,
		},
		Media:       uploads,
		Normalizer:  normalizer,
		PlayPolicy:  playtrack.NewPolicy(a.cfg.PlayRefererAllow),
		AsynqClient: a.asynqClient,
		BaseURL:     a.cfg.PublicBaseURL,
		Logger:      a.logger,
	}
	if a.cfg.YouTubeEnabled() {
		opts.YouTube = youtube.NewClient(a.cfg.YouTubeClientID, a.cfg.YouTubeClientSecret, a.cfg.YouTubeRedirectURL)
	} else {
		a.logger.Info("YouTube integration disabled, no OAuth client configured")
	}

	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(a.cfg.RateLimitRPS), a.cfg.RateLimitBurst, middleware.ByUser, a.logger)
	router := handlers.New(opts).Router(handlers.Middleware{
		Auth:      middleware.AuthMiddleware(a.store, a.logger),
		RateLimit: limiter.Middleware,
	})
	return middleware.RequestLogger(a.logger)(router), nil
}
