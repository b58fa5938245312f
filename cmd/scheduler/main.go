package main

import (
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"podhost/internal/config"
	"podhost/internal/logging"
	"podhost/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

// retrySpec is how often failed YouTube publishes are queued again.
const retrySpec = "@every 1h"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("could not build logger: %v", err)
	}
	defer logger.Sync()

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{Logger: logger.Sugar()},
	)

	task, err := tasks.NewRetryFailedPublishesTask()
	if err != nil {
		logger.Fatal("could not create task", zap.Error(err))
	}

	entryID, err := scheduler.Register(retrySpec, task)
	if err != nil {
		logger.Fatal("could not register task", zap.Error(err))
	}

	logger.Info("Scheduler starting",
		zap.String("commit", CommitSHA),
		zap.String("entry_id", entryID),
		zap.String("spec", retrySpec),
	)
	if err := scheduler.Run(); err != nil {
		logger.Fatal("could not run scheduler", zap.Error(err))
	}
}
