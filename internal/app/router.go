package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/forumhq/forumhq/internal/auth"
	"github.com/forumhq/forumhq/internal/categories"
	"github.com/forumhq/forumhq/internal/messaging"
	"github.com/forumhq/forumhq/internal/notify"
	"github.com/forumhq/forumhq/internal/observability"
	"github.com/forumhq/forumhq/internal/replies"
	"github.com/forumhq/forumhq/internal/topics"
	"github.com/forumhq/forumhq/internal/users"
	"github.com/forumhq/forumhq/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthHandler       *auth.Handler
	AuthMiddleware    auth.Middleware
	UsersHandler      *users.Handler
	CategoriesHandler *categories.Handler
	TopicsHandler     *topics.Handler
	RepliesHandler    *replies.Handler
	MessagingHandler  *messaging.Handler
	NotifyHandler     *notify.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mw := params.AuthMiddleware

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(LoginRateLimit()).Group(func(r chi.Router) {
				params.AuthHandler.MountRoutes(r, mw)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", params.UsersHandler.Register)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireUser, mw.RequireAdmin)
				r.Get("/", params.UsersHandler.List)
				if params.CategoriesHandler != nil {
					r.Get("/{userID}/permissions", params.CategoriesHandler.UserGrants)
				}
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(mw.RequireUser)
			params.CategoriesHandler.MountRoutes(r, mw)
		})

		r.Route("/topics", func(r chi.Router) {
			params.TopicsHandler.MountRoutes(r, mw)
			if params.RepliesHandler != nil {
				r.With(mw.RequireUser).Get("/{topicID}/replies", params.RepliesHandler.TopicReplies)
			}
		})

		r.Route("/replies", func(r chi.Router) {
			params.RepliesHandler.MountRoutes(r, mw)
		})

		params.MessagingHandler.MountRoutes(r, mw)

		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(mw.RequireUser, mw.RequireAdmin)
				params.JobHandler.MountRoutes(r)
			})
		}

		if params.NotifyHandler != nil {
			params.NotifyHandler.MountRoutes(r)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
