package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestBridgeDeliversAcrossRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub(testLogger())
	userID := uuid.New()
	conn := &fakeConn{}
	hub.Connect(userID, conn)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = NewSubscriber(rdb, hub, testLogger()).Run(ctx)
	}()

	publisher := NewPublisher(rdb)
	event := Event{Type: EventNewMessage, SenderID: uuid.New(), Body: "hi"}

	// The subscriber registers asynchronously; retry until the frame lands.
	deadline := time.Now().Add(2 * time.Second)
	for conn.written() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("notification never reached the hub")
		}
		if err := publisher.Publish(ctx, userID, event); err != nil {
			t.Fatalf("publish: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.mu.Lock()
	payload := conn.writes[0]
	conn.mu.Unlock()
	var got Event
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal delivered payload: %v", err)
	}
	if got.Type != EventNewMessage || got.Body != "hi" {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestBridgeSkipsOtherUsers(t *testing.T) {
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub(testLogger())
	connected := uuid.New()
	conn := &fakeConn{}
	hub.Connect(connected, conn)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = NewSubscriber(rdb, hub, testLogger()).Run(ctx)
	}()

	publisher := NewPublisher(rdb)
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if err := publisher.Publish(ctx, uuid.New(), Event{Type: EventNewMessage}); err != nil {
			t.Fatalf("publish: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if conn.written() != 0 {
		t.Fatalf("stranger traffic reached the connection: %d frames", conn.written())
	}
}
