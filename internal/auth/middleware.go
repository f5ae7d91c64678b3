package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/forumhq/forumhq/internal/platform/httpx"
	"github.com/forumhq/forumhq/internal/shared"
)

// Middleware wires token authentication helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireUser verifies the bearer token and stores the caller identity in
// the request context.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrInvalidToken.Error())
			return
		}
		ident, err := m.Service.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrInvalidToken) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}
			if m.Logger != nil {
				m.Logger.Error("verify token", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin ensures the verified identity carries the admin claim. Must
// run after RequireUser.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := shared.IdentityFromContext(r.Context())
		if !ok || !ident.IsAdmin {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
