package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/forumhq/forumhq/internal/notify"
)

type capturingPublisher struct {
	userID uuid.UUID
	event  notify.Event
	calls  int
}

func (p *capturingPublisher) Publish(ctx context.Context, userID uuid.UUID, event notify.Event) error {
	p.userID = userID
	p.event = event
	p.calls++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyUserTaskRoundTrip(t *testing.T) {
	receiver := uuid.New()
	event := notify.Event{Type: notify.EventNewMessage, SenderID: uuid.New(), Body: "hello"}
	task, err := NewNotifyUserTask(NotifyUserPayload{UserID: receiver, Event: event})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.Type() != TaskTypeNotifyUser {
		t.Fatalf("unexpected task type %q", task.Type())
	}

	publisher := &capturingPublisher{}
	processor := NewNotifyProcessor(publisher, testLogger(), nil)
	if err := processor.HandleNotifyUserTask(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if publisher.calls != 1 || publisher.userID != receiver || publisher.event != event {
		t.Fatalf("publish mismatch: %+v", publisher)
	}
}

func TestMalformedPayloadIsNotRetried(t *testing.T) {
	publisher := &capturingPublisher{}
	processor := NewNotifyProcessor(publisher, testLogger(), nil)

	task := asynq.NewTask(TaskTypeNotifyUser, []byte("not json"))
	err := processor.HandleNotifyUserTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("want SkipRetry, got %v", err)
	}
	if publisher.calls != 0 {
		t.Fatal("publisher called for malformed payload")
	}
}
