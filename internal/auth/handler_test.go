package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, service *Service) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, service)
	mw := Middleware{Service: service, Logger: logger}
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		handler.MountRoutes(r, mw)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	store := newFakeUserStore()
	store.add("alice", "s3cret")
	router := newTestRouter(t, newTestService(store))

	rec := postJSON(t, router, "/auth/login", map[string]string{
		"username": "alice",
		"password": "s3cret",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pair TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)
}

func TestLoginEndpointRejectsBadPassword(t *testing.T) {
	store := newFakeUserStore()
	store.add("alice", "s3cret")
	router := newTestRouter(t, newTestService(store))

	rec := postJSON(t, router, "/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "could not authenticate user")
}

func TestLogoutInvalidatesTokens(t *testing.T) {
	store := newFakeUserStore()
	store.add("alice", "s3cret")
	service := newTestService(store)
	router := newTestRouter(t, service)

	login := postJSON(t, router, "/auth/login", map[string]string{
		"username": "alice",
		"password": "s3cret",
	}, "")
	require.Equal(t, http.StatusOK, login.Code)
	var pair TokenPair
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &pair))

	logout := postJSON(t, router, "/auth/logout", nil, pair.AccessToken)
	require.Equal(t, http.StatusNoContent, logout.Code)

	// The surviving refresh token must now be rejected.
	refresh := postJSON(t, router, "/auth/refresh", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, refresh.Code)
	assert.Contains(t, refresh.Body.String(), "could not verify token")
}

func TestLogoutWithoutTokenIsRejected(t *testing.T) {
	store := newFakeUserStore()
	router := newTestRouter(t, newTestService(store))

	rec := postJSON(t, router, "/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
