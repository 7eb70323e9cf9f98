package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	appMiddleware "github.com/FACorreiaa/go-logistics-backoffice/app/middleware"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

type stubAuth struct{}

func (stubAuth) Login(w http.ResponseWriter, r *http.Request)          { ok(w, r) }
func (stubAuth) Logout(w http.ResponseWriter, r *http.Request)         { ok(w, r) }
func (stubAuth) Me(w http.ResponseWriter, r *http.Request)             { ok(w, r) }
func (stubAuth) ChangePassword(w http.ResponseWriter, r *http.Request) { ok(w, r) }
func (stubAuth) RecoveryStart(w http.ResponseWriter, r *http.Request)  { ok(w, r) }
func (stubAuth) RecoveryVerify(w http.ResponseWriter, r *http.Request) { ok(w, r) }
func (stubAuth) RecoveryReset(w http.ResponseWriter, r *http.Request)  { ok(w, r) }

type stubUsers struct{}

func (stubUsers) Register(w http.ResponseWriter, r *http.Request)   { ok(w, r) }
func (stubUsers) ListUsers(w http.ResponseWriter, r *http.Request)  { ok(w, r) }
func (stubUsers) CreateUser(w http.ResponseWriter, r *http.Request) { ok(w, r) }
func (stubUsers) GetUser(w http.ResponseWriter, r *http.Request)    { ok(w, r) }
func (stubUsers) UpdateUser(w http.ResponseWriter, r *http.Request) { ok(w, r) }
func (stubUsers) DeleteUser(w http.ResponseWriter, r *http.Request) { ok(w, r) }

type stubRoles struct{}

func (stubRoles) ListRoles(w http.ResponseWriter, r *http.Request)              { ok(w, r) }
func (stubRoles) GetRole(w http.ResponseWriter, r *http.Request)                { ok(w, r) }
func (stubRoles) CreateRole(w http.ResponseWriter, r *http.Request)             { ok(w, r) }
func (stubRoles) UpdateRole(w http.ResponseWriter, r *http.Request)             { ok(w, r) }
func (stubRoles) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) { ok(w, r) }
func (stubRoles) DeleteRole(w http.ResponseWriter, r *http.Request)             { ok(w, r) }
func (stubRoles) ListPermissions(w http.ResponseWriter, r *http.Request)        { ok(w, r) }
func (stubRoles) SeedPermissions(w http.ResponseWriter, r *http.Request)        { ok(w, r) }
func (stubRoles) GetUserPermissions(w http.ResponseWriter, r *http.Request)     { ok(w, r) }

// grantSet authorizes exactly the listed resource:action pairs.
type grantSet map[string]bool

func (g grantSet) Authorize(_ context.Context, _ *types.User, resource, action string) (bool, error) {
	return g[resource+":"+action], nil
}

// headerAuth authenticates any request carrying X-Test-User.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test-User") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		user := &types.User{ID: 1, Username: r.Header.Get("X-Test-User"), IsActive: true}
		next.ServeHTTP(w, r.WithContext(appMiddleware.WithUser(r.Context(), user)))
	})
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func newRouter(grants grantSet, health Pinger) http.Handler {
	return SetupRouter(&Config{
		AuthHandler:    stubAuth{},
		UserHandler:    stubUsers{},
		RoleHandler:    stubRoles{},
		Authenticate:   headerAuth,
		Authorizer:     grants,
		HealthCheck:    health,
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func serve(h http.Handler, method, path string, authed bool) int {
	req := httptest.NewRequest(method, path, nil)
	if authed {
		req.Header.Set("X-Test-User", "alice")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRouter_PublicRoutes(t *testing.T) {
	h := newRouter(grantSet{}, pinger{})
	for _, path := range []string{
		"/api/v1/users/register",
		"/api/v1/users/login",
		"/api/v1/users/recovery/start",
		"/api/v1/users/recovery/verify",
		"/api/v1/users/recovery/reset",
	} {
		assert.Equal(t, http.StatusOK, serve(h, http.MethodPost, path, false), path)
	}
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/ping", false))
}

func TestRouter_AuthenticatedRoutes(t *testing.T) {
	h := newRouter(grantSet{}, pinger{})

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/v1/users/me", false))
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/users/me", true))
	assert.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/v1/users/logout", true))
	assert.Equal(t, http.StatusOK, serve(h, http.MethodPut, "/api/v1/users/me/password", true))
}

func TestRouter_PermissionGates(t *testing.T) {
	cases := []struct {
		method, path, grant string
	}{
		{http.MethodGet, "/api/v1/users", "users:read"},
		{http.MethodPost, "/api/v1/users", "users:create"},
		{http.MethodGet, "/api/v1/users/7", "users:read"},
		{http.MethodPut, "/api/v1/users/7", "users:update"},
		{http.MethodDelete, "/api/v1/users/7", "users:delete"},
		{http.MethodGet, "/api/v1/roles", "roles:read"},
		{http.MethodPost, "/api/v1/roles", "roles:create"},
		{http.MethodGet, "/api/v1/roles/2", "roles:read"},
		{http.MethodPut, "/api/v1/roles/2", "roles:update"},
		{http.MethodPut, "/api/v1/roles/2/permissions", "roles:update"},
		{http.MethodDelete, "/api/v1/roles/2", "roles:delete"},
		{http.MethodGet, "/api/v1/roles/permissions/all", "roles:read"},
		{http.MethodPost, "/api/v1/roles/permissions/init", "roles:create"},
		{http.MethodGet, "/api/v1/roles/users/7/permissions", "roles:read"},
	}
	for _, tc := range cases {
		denied := newRouter(grantSet{}, pinger{})
		assert.Equal(t, http.StatusForbidden, serve(denied, tc.method, tc.path, true), tc.method+" "+tc.path)

		allowed := newRouter(grantSet{tc.grant: true}, pinger{})
		assert.Equal(t, http.StatusOK, serve(allowed, tc.method, tc.path, true), tc.method+" "+tc.path)
	}
}

func TestRouter_Health(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(newRouter(grantSet{}, pinger{}), http.MethodGet, "/health", false))
	assert.Equal(t, http.StatusServiceUnavailable,
		serve(newRouter(grantSet{}, pinger{err: errors.New("down")}), http.MethodGet, "/health", false))
}
