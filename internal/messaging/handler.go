package messaging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/auth"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
)

// Handler wires HTTP endpoints for direct messages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers messaging routes. Every route requires an
// authenticated caller.
func (h *Handler) MountRoutes(r chi.Router, mw auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireUser)
		r.Post("/messages", h.handleSend)
		r.Get("/conversations", h.handleConversations)
		r.Get("/conversations/partners", h.handlePartners)
		r.Get("/conversations/{conversationID}/messages", h.handleMessages)
	})
}

type messageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMessageResponse(m *Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

type conversationResponse struct {
	ID        uuid.UUID `json:"id"`
	PartnerID uuid.UUID `json:"partner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Content    string    `json:"content" validate:"required"`
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req sendMessageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	message, err := h.service.Send(r.Context(), ident, req.ReceiverID, req.Content)
	if err != nil {
		h.logger.Warn("send message", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMessageResponse(message))
}

func (h *Handler) handleConversations(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	all, err := h.service.ConversationsFor(r.Context(), ident)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]conversationResponse, len(all))
	for i, c := range all {
		out[i] = conversationResponse{
			ID:        c.ID,
			PartnerID: c.Partner(ident.UserID),
			CreatedAt: c.CreatedAt,
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handlePartners(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	partners, err := h.service.PartnersFor(r.Context(), ident)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, partners)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid conversation id")
		return
	}
	all, err := h.service.MessagesIn(r.Context(), ident, conversationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]messageResponse, len(all))
	for i := range all {
		out[i] = toMessageResponse(&all[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}
