package user

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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

func newTestRouter(repo *MockUserRepo) http.Handler {
	svc, _ := newService(repo)
	h := NewHandlerImpl(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Post("/users/register", h.Register)
	r.Get("/users", h.ListUsers)
	r.Get("/users/{id}", h.GetUser)
	r.Put("/users/{id}", h.UpdateUser)
	r.Delete("/users/{id}", h.DeleteUser)
	return r
}

func TestHandler_RegisterHidesHashes(t *testing.T) {
	repo := new(MockUserRepo)
	repo.On("UsernameTaken", mock.Anything, "alice", int64(0)).Return(false, nil)
	repo.On("CreateUser", mock.Anything, mock.Anything).Return(&types.User{
		ID: 1, Username: "alice", PasswordHash: "$2a$secret", SecurityAnswer1Hash: strPtr("$2a$answer"), IsActive: true,
	}, nil)

	rec := httptest.NewRecorder()
	body := `{"username":"alice","password":"TestPass123!"}`
	newTestRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "$2a$")
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestHandler_RegisterPolicyViolation(t *testing.T) {
	rec := httptest.NewRecorder()
	body := `{"username":"alice","password":"Test Pass123!"}`
	newTestRouter(new(MockUserRepo)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "password must not contain spaces", resp["error"])
}

func TestHandler_RegisterUnknownField(t *testing.T) {
	rec := httptest.NewRecorder()
	body := `{"username":"alice","password":"TestPass123!","is_admin":true}`
	newTestRouter(new(MockUserRepo)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetUserNotFound(t *testing.T) {
	repo := new(MockUserRepo)
	repo.On("GetUserByID", mock.Anything, int64(9)).Return(nil, types.ErrNotFound)

	rec := httptest.NewRecorder()
	newTestRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetUserBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(new(MockUserRepo)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ListUsersPaging(t *testing.T) {
	repo := new(MockUserRepo)
	repo.On("ListUsers", mock.Anything, types.ListParams{Skip: 5, Limit: 2}).
		Return([]types.User{{ID: 6, Username: "f"}, {ID: 7, Username: "g"}}, nil)

	rec := httptest.NewRecorder()
	newTestRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users?skip=5&limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var users []types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestHandler_DeleteUser(t *testing.T) {
	repo := new(MockUserRepo)
	repo.On("DeactivateUser", mock.Anything, int64(3)).Return(nil)

	rec := httptest.NewRecorder()
	newTestRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}
