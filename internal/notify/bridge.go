package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the redis pub/sub channel carrying user notifications from
// the worker to whichever API instance holds the user's socket.
const Channel = "forum:notify"

type envelope struct {
	UserID  uuid.UUID       `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher fans an event out over redis pub/sub.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) Publish(ctx context.Context, userID uuid.UUID, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(envelope{UserID: userID, Payload: payload})
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, Channel, raw).Err()
}

// Subscriber forwards channel traffic to the local hub. Each API instance
// runs one; envelopes for users connected elsewhere are silently skipped
// by the hub.
type Subscriber struct {
	rdb    *redis.Client
	hub    *Hub
	logger *slog.Logger
}

func NewSubscriber(rdb *redis.Client, hub *Hub, logger *slog.Logger) *Subscriber {
	return &Subscriber{rdb: rdb, hub: hub, logger: logger}
}

// Run blocks until ctx is done, delivering envelopes to the hub. Malformed
// envelopes are logged and skipped.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, Channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.logger.Warn("bad notification envelope", slog.Any("error", err))
				continue
			}
			s.hub.Send(env.UserID, env.Payload)
		}
	}
}
