package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypePublishEpisode       = "episode:youtube_publish"
	TypeRetryFailedPublishes = "episodes:youtube_retry_failed"
)

// PublishMaxRetry bounds automatic retries of a single publish.
const PublishMaxRetry = 5

type PublishEpisodeTaskPayload struct {
	EpisodeID string
	UserID    string
}

func NewPublishEpisodeTask(episodeID, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishEpisodeTaskPayload{EpisodeID: episodeID, UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePublishEpisode, payload,
		asynq.MaxRetry(PublishMaxRetry),
		asynq.Timeout(30*time.Minute),
	), nil
}

func NewRetryFailedPublishesTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeRetryFailedPublishes, nil), nil
}
