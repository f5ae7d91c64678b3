package notify

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
	fail   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) written() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendDeliversToConnectedUser(t *testing.T) {
	hub := NewHub(testLogger())
	userID := uuid.New()
	conn := &fakeConn{}
	hub.Connect(userID, conn)

	if !hub.Send(userID, []byte("hello")) {
		t.Fatal("send to connected user reported failure")
	}
	if conn.written() != 1 {
		t.Fatalf("want one frame, got %d", conn.written())
	}
}

func TestSendWithoutConnectionIsDropped(t *testing.T) {
	hub := NewHub(testLogger())
	if hub.Send(uuid.New(), []byte("hello")) {
		t.Fatal("send to absent user reported success")
	}
}

func TestSecondConnectionPreemptsFirst(t *testing.T) {
	hub := NewHub(testLogger())
	userID := uuid.New()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Connect(userID, first)
	hub.Connect(userID, second)

	if !first.isClosed() {
		t.Fatal("first connection not closed on preempt")
	}
	hub.Send(userID, []byte("hello"))
	if second.written() != 1 || first.written() != 0 {
		t.Fatalf("frame went to the wrong connection: first=%d second=%d", first.written(), second.written())
	}
}

func TestPreemptedDisconnectKeepsSuccessor(t *testing.T) {
	hub := NewHub(testLogger())
	userID := uuid.New()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Connect(userID, first)
	hub.Connect(userID, second)
	hub.Disconnect(userID, first)

	if !hub.Send(userID, []byte("hello")) {
		t.Fatal("successor connection evicted by stale disconnect")
	}
}

func TestWriteFailureTearsConnectionDown(t *testing.T) {
	hub := NewHub(testLogger())
	userID := uuid.New()
	conn := &fakeConn{fail: true}
	hub.Connect(userID, conn)

	if hub.Send(userID, []byte("hello")) {
		t.Fatal("failed write reported success")
	}
	if !conn.isClosed() {
		t.Fatal("connection not closed after write failure")
	}
	if hub.Send(userID, []byte("again")) {
		t.Fatal("connection still registered after teardown")
	}
}

func TestCloseAll(t *testing.T) {
	hub := NewHub(testLogger())
	a, b := &fakeConn{}, &fakeConn{}
	hub.Connect(uuid.New(), a)
	hub.Connect(uuid.New(), b)

	hub.CloseAll()

	if !a.isClosed() || !b.isClosed() {
		t.Fatal("not every connection was closed")
	}
}
