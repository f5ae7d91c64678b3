package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/forumhq/forumhq/internal/jobs"
	"github.com/forumhq/forumhq/internal/notify"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotifyUser is the task type for pushing a notification to a
	// connected user.
	TaskTypeNotifyUser = "notify:user"
)

// NotifyUserPayload carries one notification for one receiver.
type NotifyUserPayload struct {
	UserID uuid.UUID    `json:"user_id"`
	Event  notify.Event `json:"event"`
}

// NewNotifyUserTask constructs an Asynq task.
func NewNotifyUserTask(payload NotifyUserPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyUser, data), nil
}

// EventPublisher fans a notification out to whichever instance holds the
// receiver's socket.
type EventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event notify.Event) error
}

// NotifyProcessor handles TaskTypeNotifyUser tasks inside the worker.
type NotifyProcessor struct {
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewNotifyProcessor constructs a NotifyProcessor. A nil metrics is
// allowed; instrumentation is then skipped.
func NewNotifyProcessor(publisher EventPublisher, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyProcessor {
	return &NotifyProcessor{publisher: publisher, logger: logger, metrics: metrics}
}

// HandleNotifyUserTask publishes the payload over the notification bridge.
// A malformed payload is dropped rather than retried.
func (p *NotifyProcessor) HandleNotifyUserTask(ctx context.Context, t *asynq.Task) error {
	tracker := p.metrics.Track(TaskTypeNotifyUser)
	var payload NotifyUserPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.logger.Warn("malformed notify payload", slog.Any("error", err))
		return tracker.End(asynq.SkipRetry)
	}
	return tracker.End(p.publisher.Publish(ctx, payload.UserID, payload.Event))
}
