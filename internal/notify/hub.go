package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Conn is the slice of a websocket connection the hub needs. The gorilla
// *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// TextMessage mirrors the gorilla text frame opcode so hub callers need no
// direct websocket import.
const TextMessage = 1

// Hub tracks at most one live connection per user. A second connection for
// the same user preempts the first. Pushes are best effort: a failed write
// tears the connection down and the message is dropped.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]Conn
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[uuid.UUID]Conn),
	}
}

// Connect registers the user's connection, closing any previous one.
func (h *Hub) Connect(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	prev := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
		h.logger.Debug("preempted connection", slog.String("user_id", userID.String()))
	}
}

// Disconnect removes the user's connection, but only when it is still the
// one passed in. A preempted connection must not evict its successor.
func (h *Hub) Disconnect(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
}

// Send pushes payload to the user if connected. It reports whether the
// frame was written; a write failure closes and drops the connection.
func (h *Hub) Send(userID uuid.UUID, payload []byte) bool {
	h.mu.Lock()
	conn, ok := h.conns[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	if err := conn.WriteMessage(TextMessage, payload); err != nil {
		h.logger.Warn("push failed", slog.String("user_id", userID.String()), slog.Any("error", err))
		h.mu.Lock()
		if h.conns[userID] == conn {
			delete(h.conns, userID)
		}
		h.mu.Unlock()
		_ = conn.Close()
		return false
	}
	return true
}

// CloseAll tears down every connection, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[uuid.UUID]Conn)
	h.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}
