package topics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/auth"
	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
)

// Handler wires HTTP endpoints for topics.
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

// MountRoutes registers topic routes. The public listing needs no token;
// everything else requires an authenticated caller, and locking is
// admin-only.
func (h *Handler) MountRoutes(r chi.Router, mw auth.Middleware) {
	r.Get("/public", h.handleListPublic)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireUser)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{topicID}", h.handleGet)
		r.Put("/{topicID}", h.handleUpdate)
		r.Put("/{topicID}/best-reply/{replyID}", h.handleSelectBestReply)
		r.With(mw.RequireAdmin).Put("/{topicID}/lock", h.handleLock)
	})
}

type topicResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	AuthorID    uuid.UUID  `json:"author_id"`
	CategoryID  uuid.UUID  `json:"category_id"`
	IsLocked    bool       `json:"is_locked"`
	BestReplyID *uuid.UUID `json:"best_reply_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTopicResponse(t *Topic) topicResponse {
	return topicResponse{
		ID:          t.ID,
		Title:       t.Title,
		Content:     t.Content,
		AuthorID:    t.AuthorID,
		CategoryID:  t.CategoryID,
		IsLocked:    t.IsLocked,
		BestReplyID: t.BestReplyID,
		CreatedAt:   t.CreatedAt,
	}
}

func toTopicResponses(all []Topic) []topicResponse {
	out := make([]topicResponse, len(all))
	for i := range all {
		out[i] = toTopicResponse(&all[i])
	}
	return out
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return Filter{
		OrderBy: q.Get("order_by"),
		Order:   q.Get("order"),
		Limit:   limit,
		Offset:  offset,
	}.Normalize()
}

func (h *Handler) handleListPublic(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListPublic(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("list public topics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponses(all))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	all, err := h.service.List(r.Context(), ident, filterFromQuery(r))
	if err != nil {
		h.logger.Error("list topics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponses(all))
}

type createTopicRequest struct {
	Title      string    `json:"title" validate:"required,max=200"`
	Content    string    `json:"content" validate:"required"`
	CategoryID uuid.UUID `json:"category_id" validate:"required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	var req createTopicRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	topic, err := h.service.Create(r.Context(), ident, CreateInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		h.logger.Warn("create topic", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTopicResponse(topic))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, err := pathUUID(r, "topicID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid topic id")
		return
	}
	topic, err := h.service.Get(r.Context(), ident, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponse(topic))
}

type updateTopicRequest struct {
	Title      *string    `json:"title" validate:"omitempty,max=200"`
	Content    *string    `json:"content"`
	CategoryID *uuid.UUID `json:"category_id"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	id, err := pathUUID(r, "topicID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid topic id")
		return
	}
	var req updateTopicRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	topic, err := h.service.Update(r.Context(), ident, id, UpdatePatch{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		h.logger.Warn("update topic", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponse(topic))
}

type lockTopicRequest struct {
	IsLocked bool `json:"is_locked"`
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "topicID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid topic id")
		return
	}
	var req lockTopicRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	topic, err := h.service.Lock(r.Context(), id, req.IsLocked)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponse(topic))
}

func (h *Handler) handleSelectBestReply(w http.ResponseWriter, r *http.Request) {
	ident, _ := shared.IdentityFromContext(r.Context())
	topicID, err := pathUUID(r, "topicID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid topic id")
		return
	}
	replyID, err := pathUUID(r, "replyID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reply id")
		return
	}
	topic, err := h.service.SelectBestReply(r.Context(), ident, topicID, replyID)
	if err != nil {
		h.logger.Warn("select best reply", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponse(topic))
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, key))
}
