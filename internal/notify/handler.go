package notify

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/forumhq/forumhq/internal/observability"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
)

// TokenVerifier validates an access token and yields the caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (shared.Identity, error)
}

// Handler upgrades authenticated callers onto the hub.
type Handler struct {
	logger   *slog.Logger
	hub      *Hub
	verifier TokenVerifier
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func NewHandler(logger *slog.Logger, hub *Hub, verifier TokenVerifier, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		hub:      hub,
		verifier: verifier,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// MountRoutes registers the websocket endpoint. Browsers cannot set an
// Authorization header on a websocket dial, so the token rides a query
// parameter and is verified before the upgrade.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ws", h.handleConnect)
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing token")
		return
	}
	ident, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidToken.Error())
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", slog.Any("error", err))
		return
	}

	h.hub.Connect(ident.UserID, conn)
	h.metrics.WSConnected()
	defer func() {
		h.hub.Disconnect(ident.UserID, conn)
		h.metrics.WSDisconnected()
		_ = conn.Close()
	}()

	// Drain the read side until the peer closes. Inbound frames carry no
	// meaning; the socket is push only.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
