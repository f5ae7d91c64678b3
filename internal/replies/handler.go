package replies

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

// Handler wires HTTP endpoints for replies and voting.
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

// MountRoutes registers reply routes. Every route requires an
// authenticated caller.
func (h *Handler) MountRoutes(r chi.Router, mw auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireUser)
		r.Post("/", h.handleCreate)
		r.Get("/{replyID}", h.handleGet)
		r.Put("/{replyID}", h.handleUpdate)
		r.Put("/{replyID}/vote", h.handleVote)
	})
}

type replyResponse struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	AuthorID  uuid.UUID `json:"author_id"`
	TopicID   uuid.UUID `json:"topic_id"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
}

func toReplyResponse(r *WithVotes) replyResponse {
	return replyResponse{
		ID:        r.ID,
		Content:   r.Content,
		AuthorID:  r.AuthorID,
		TopicID:   r.TopicID,
		Upvotes:   r.Votes.Upvotes,
		Downvotes: r.Votes.Downvotes,
		CreatedAt: r.CreatedAt,
	}
}

type createReplyRequest struct {
	TopicID uuid.UUID `json:"topic_id" validate:"required"`
	Content string    `json:"content" validate:"required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req createReplyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reply, err := h.service.Create(r.Context(), ident, req.TopicID, req.Content)
	if err != nil {
		h.logger.Warn("create reply", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReplyResponse(reply))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, err := pathUUID(r, "replyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reply id")
		return
	}
	reply, err := h.service.Get(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReplyResponse(reply))
}

type updateReplyRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, err := pathUUID(r, "replyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reply id")
		return
	}
	var req updateReplyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reply, err := h.service.Update(r.Context(), ident, id, req.Content)
	if err != nil {
		h.logger.Warn("update reply", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReplyResponse(reply))
}

type voteRequest struct {
	Positive *bool `json:"positive" validate:"required"`
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, err := pathUUID(r, "replyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reply id")
		return
	}
	var req voteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if req.Positive == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "positive is required")
		return
	}
	reply, err := h.service.Vote(r.Context(), ident, id, *req.Positive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReplyResponse(reply))
}

// TopicReplies lists a topic's replies with vote tallies. Mounted under
// the topics route tree by the router.
func (h *Handler) TopicReplies(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	topicID, err := pathUUID(r, "topicID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid topic id")
		return
	}
	all, err := h.service.ListByTopic(r.Context(), ident, topicID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]replyResponse, len(all))
	for i := range all {
		out[i] = toReplyResponse(&all[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, key))
}
