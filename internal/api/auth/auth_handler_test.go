package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/FACorreiaa/go-logistics-backoffice/app/middleware"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

func newTestRouter(f *fixture) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandlerImpl(f.svc, logger)

	r := chi.NewRouter()
	r.Use(appMiddleware.CaptureRequestMeta)
	r.Post("/users/login", h.Login)
	r.Post("/users/recovery/start", h.RecoveryStart)
	r.Post("/users/recovery/verify", h.RecoveryVerify)
	r.Post("/users/recovery/reset", h.RecoveryReset)
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(f.svc, logger))
		r.Get("/users/me", h.Me)
		r.Post("/users/logout", h.Logout)
		r.Put("/users/me/password", h.ChangePassword)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandler_LoginAndMe(t *testing.T) {
	f := newFixture(t, Options{}, 5)
	router := newTestRouter(f)

	rec := do(t, router, http.MethodPost, "/users/login", `{"username":"alice","password":"TestPass123!"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode(t, rec)
	token, _ := login["access_token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "bearer", login["token_type"])

	ev := f.notifier.last()
	assert.Equal(t, "192.0.2.1", ev.IPAddress)

	rec = do(t, router, http.MethodGet, "/users/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, "alice", me["username"])
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestHandler_LoginStatuses(t *testing.T) {
	f := newFixture(t, Options{}, 5)
	router := newTestRouter(f)

	assert.Equal(t, http.StatusNotFound,
		do(t, router, http.MethodPost, "/users/login", `{"username":"mallory","password":"x"}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, router, http.MethodPost, "/users/login", `{"username":"alice","password":"nope"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest,
		do(t, router, http.MethodPost, "/users/login", `{"username":"alice"`, "").Code)
}

func TestHandler_LoginLockout(t *testing.T) {
	f := newFixture(t, Options{}, 1)
	router := newTestRouter(f)

	do(t, router, http.MethodPost, "/users/login", `{"username":"alice","password":"nope"}`, "")
	rec := do(t, router, http.MethodPost, "/users/login", `{"username":"alice","password":"TestPass123!"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	f := newFixture(t, Options{}, 5)
	router := newTestRouter(f)

	rec := do(t, router, http.MethodGet, "/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/users/me", "", "garbage").Code)

	reset, err := f.tokens.IssueResetToken("alice")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/users/me", "", reset).Code)

	inactive, err := f.tokens.IssueAccessToken(int64(2))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/users/me", "", inactive).Code)
}

func TestHandler_LogoutAndChangePassword(t *testing.T) {
	f := newFixture(t, Options{}, 5)
	router := newTestRouter(f)
	token, err := f.tokens.IssueAccessToken(int64(1))
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/users/logout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.AuditLogout, f.notifier.last().EventType)

	rec = do(t, router, http.MethodPut, "/users/me/password",
		`{"current_password":"TestPass123!","new_password":"nospecial1A"}`, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password must contain at least one special character", decode(t, rec)["error"])

	rec = do(t, router, http.MethodPut, "/users/me/password",
		`{"current_password":"TestPass123!","new_password":"Changed99!"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.hasher.Verify("Changed99!", f.store.hash(1)))
}

func TestHandler_RecoveryFlow(t *testing.T) {
	f := newFixture(t, Options{}, 5)
	router := newTestRouter(f)

	rec := do(t, router, http.MethodPost, "/users/recovery/start", `{"username":"alice"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	start := decode(t, rec)
	assert.Len(t, start["questions"], 2)

	rec = do(t, router, http.MethodPost, "/users/recovery/verify",
		`{"username":"alice","answers":["Firulais","Bogotá"]}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/users/recovery/verify",
		`{"username":"alice","answers":["Bogotá","Firulais"]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resetToken, _ := decode(t, rec)["reset_token"].(string)
	require.NotEmpty(t, resetToken)

	rec = do(t, router, http.MethodPost, "/users/recovery/reset",
		`{"token":"`+resetToken+`","new_password":"Recovered1#"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/users/login", `{"username":"alice","password":"TestPass123!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, router, http.MethodPost, "/users/login", `{"username":"alice","password":"Recovered1#"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_RecoveryResetInvalidToken(t *testing.T) {
	f := newFixture(t, Options{}, 5)
	rec := do(t, newTestRouter(f), http.MethodPost, "/users/recovery/reset",
		`{"token":"not-a-jwt","new_password":"Recovered1#"}`, "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, rec)["error"])
}
