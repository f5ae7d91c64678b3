package categories

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/forumhq/forumhq/internal/auth"
	"github.com/forumhq/forumhq/internal/platform/httpx"
)

// Handler wires HTTP endpoints for category administration.
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

// MountRoutes registers category routes. Listing is open to any
// authenticated caller; every mutation is admin-only.
func (h *Handler) MountRoutes(r chi.Router, mw auth.Middleware) {
	r.Get("/", h.handleList)
	r.Get("/{categoryID}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdmin)
		r.Post("/", h.handleCreate)
		r.Put("/{categoryID}/privacy", h.handleSetPrivacy)
		r.Put("/{categoryID}/lock", h.handleSetLock)
		r.Get("/{categoryID}/permissions", h.handlePrivilegedUsers)
		r.Put("/{categoryID}/permissions/{userID}", h.handleGrant)
		r.Delete("/{categoryID}/permissions/{userID}", h.handleRevokeGrant)
	})
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"is_private"`
	IsLocked  bool      `json:"is_locked"`
	CreatedAt time.Time `json:"created_at"`
}

func toCategoryResponse(c *Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		IsPrivate: c.IsPrivate,
		IsLocked:  c.IsLocked,
		CreatedAt: c.CreatedAt,
	}
}

type permissionResponse struct {
	UserID      uuid.UUID   `json:"user_id"`
	CategoryID  uuid.UUID   `json:"category_id"`
	AccessLevel AccessLevel `json:"access_level"`
}

func toPermissionResponses(grants []Permission) []permissionResponse {
	out := make([]permissionResponse, len(grants))
	for i, g := range grants {
		out[i] = permissionResponse{UserID: g.UserID, CategoryID: g.CategoryID, AccessLevel: g.AccessLevel}
	}
	return out
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]categoryResponse, len(all))
	for i := range all {
		out[i] = toCategoryResponse(&all[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "categoryID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	category, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCategoryResponse(category))
}

type createCategoryRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	IsPrivate bool   `json:"is_private"`
	IsLocked  bool   `json:"is_locked"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	category, err := h.service.Create(r.Context(), req.Name, req.IsPrivate, req.IsLocked)
	if err != nil {
		h.logger.Warn("create category", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCategoryResponse(category))
}

type privacyRequest struct {
	IsPrivate bool `json:"is_private"`
}

func (h *Handler) handleSetPrivacy(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "categoryID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	var req privacyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	category, err := h.service.SetPrivacy(r.Context(), id, req.IsPrivate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCategoryResponse(category))
}

type lockRequest struct {
	IsLocked bool `json:"is_locked"`
}

func (h *Handler) handleSetLock(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "categoryID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	var req lockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	category, err := h.service.SetLock(r.Context(), id, req.IsLocked)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCategoryResponse(category))
}

func (h *Handler) handlePrivilegedUsers(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "categoryID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	grants, err := h.service.PrivilegedUsers(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponses(grants))
}

type grantRequest struct {
	AccessLevel AccessLevel `json:"access_level" validate:"required"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	userID, err := pathUUID(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	grant, err := h.service.Grant(r.Context(), userID, categoryID, req.AccessLevel)
	if err != nil {
		h.logger.Warn("grant access", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissionResponse{
		UserID:      grant.UserID,
		CategoryID:  grant.CategoryID,
		AccessLevel: grant.AccessLevel,
	})
}

func (h *Handler) handleRevokeGrant(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathUUID(r, "categoryID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid category id")
		return
	}
	userID, err := pathUUID(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	if err := h.service.RevokeGrant(r.Context(), userID, categoryID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UserGrants lists every grant held by a user. Mounted under the users
// admin surface by the router.
func (h *Handler) UserGrants(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	grants, err := h.service.GrantsFor(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPermissionResponses(grants))
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, key))
}
