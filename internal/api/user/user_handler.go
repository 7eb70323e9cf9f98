package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	ListUsers(w http.ResponseWriter, r *http.Request)
	CreateUser(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	UpdateUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register User
// @Description  Public self-registration. The new user has no role and therefore no permissions.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        user body types.CreateUserRequest true "New user"
// @Success      201 {object} types.User
// @Failure      400 {object} types.Response "Invalid input or password policy violation"
// @Failure      409 {object} types.Response "Username already registered"
// @Router       /users/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "Register", h.userService.Register)
}

// CreateUser godoc
// @Summary      Create User
// @Description  Administrative create; may assign a role.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        user body types.CreateUserRequest true "New user"
// @Success      201 {object} types.User
// @Failure      400 {object} types.Response "Invalid input or password policy violation"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Role not found"
// @Failure      409 {object} types.Response "Username already registered"
// @Security     BearerAuth
// @Router       /users [post]
func (h *HandlerImpl) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "CreateUser", h.userService.CreateUser)
}

func (h *HandlerImpl) create(w http.ResponseWriter, r *http.Request, name string,
	fn func(ctx context.Context, req types.CreateUserRequest) (*types.User, error)) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", name))

	var req types.CreateUserRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := fn(ctx, req)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, user)
}

// ListUsers godoc
// @Summary      List Users
// @Tags         Users
// @Produce      json
// @Param        skip  query int false "Rows to skip" default(0)
// @Param        limit query int false "Max rows" default(100)
// @Success      200 {array} types.User
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      403 {object} types.Response "Forbidden"
// @Security     BearerAuth
// @Router       /users [get]
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "ListUsers"))

	params, err := api.ParseListParams(r)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	users, err := h.userService.ListUsers(r.Context(), params)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// GetUser godoc
// @Summary      Get User
// @Tags         Users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} types.User
// @Failure      404 {object} types.Response "User not found"
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "GetUser"))

	userID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// UpdateUser godoc
// @Summary      Update User
// @Description  Partial update of username, role and active flag.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id   path int true "User ID"
// @Param        user body types.UpdateUserRequest true "Fields to change"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response "Invalid input"
// @Failure      404 {object} types.Response "User or role not found"
// @Failure      409 {object} types.Response "Username already registered"
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *HandlerImpl) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UpdateUser"))

	userID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	var req types.UpdateUserRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateUser(ctx, userID, req)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// DeleteUser godoc
// @Summary      Delete User
// @Description  Soft delete: the user is deactivated and can no longer authenticate.
// @Tags         Users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} types.Response
// @Failure      404 {object} types.Response "User not found"
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *HandlerImpl) DeleteUser(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "DeleteUser"))

	userID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	if err := h.userService.DeleteUser(r.Context(), userID); err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "User deactivated",
	})
}
