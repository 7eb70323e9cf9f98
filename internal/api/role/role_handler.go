package role

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListRoles(w http.ResponseWriter, r *http.Request)
	GetRole(w http.ResponseWriter, r *http.Request)
	CreateRole(w http.ResponseWriter, r *http.Request)
	UpdateRole(w http.ResponseWriter, r *http.Request)
	ReplaceRolePermissions(w http.ResponseWriter, r *http.Request)
	DeleteRole(w http.ResponseWriter, r *http.Request)
	ListPermissions(w http.ResponseWriter, r *http.Request)
	SeedPermissions(w http.ResponseWriter, r *http.Request)
	GetUserPermissions(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	roleService RoleService
	logger      *slog.Logger
}

func NewHandlerImpl(roleService RoleService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		roleService: roleService,
		logger:      logger,
	}
}

// ListRoles godoc
// @Summary      List Roles
// @Description  Role summaries with their permission count.
// @Tags         Roles
// @Produce      json
// @Param        skip  query int false "Rows to skip" default(0)
// @Param        limit query int false "Max rows" default(100)
// @Success      200 {array} types.RoleSummary
// @Failure      403 {object} types.Response "Forbidden"
// @Security     BearerAuth
// @Router       /roles [get]
func (h *HandlerImpl) ListRoles(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "ListRoles"))

	params, err := api.ParseListParams(r)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	roles, err := h.roleService.ListRoles(r.Context(), params)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, roles)
}

// GetRole godoc
// @Summary      Get Role
// @Tags         Roles
// @Produce      json
// @Param        id path int true "Role ID"
// @Success      200 {object} types.Role
// @Failure      404 {object} types.Response "Role not found"
// @Security     BearerAuth
// @Router       /roles/{id} [get]
func (h *HandlerImpl) GetRole(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "GetRole"))

	roleID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	role, err := h.roleService.GetRole(r.Context(), roleID)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

// CreateRole godoc
// @Summary      Create Role
// @Tags         Roles
// @Accept       json
// @Produce      json
// @Param        role body types.CreateRoleRequest true "New role"
// @Success      201 {object} types.Role
// @Failure      400 {object} types.Response "Invalid input"
// @Failure      404 {object} types.Response "Permission not found"
// @Failure      409 {object} types.Response "Role name already exists"
// @Security     BearerAuth
// @Router       /roles [post]
func (h *HandlerImpl) CreateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "CreateRole"))

	var req types.CreateRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := h.roleService.CreateRole(ctx, req)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, role)
}

// UpdateRole godoc
// @Summary      Update Role
// @Description  Partial update. permission_ids, when present, replaces the whole permission set.
// @Tags         Roles
// @Accept       json
// @Produce      json
// @Param        id   path int true "Role ID"
// @Param        role body types.UpdateRoleRequest true "Fields to change"
// @Success      200 {object} types.Role
// @Failure      404 {object} types.Response "Role or permission not found"
// @Failure      409 {object} types.Response "Role name already exists"
// @Security     BearerAuth
// @Router       /roles/{id} [put]
func (h *HandlerImpl) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UpdateRole"))

	roleID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	var req types.UpdateRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := h.roleService.UpdateRole(ctx, roleID, req)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

// ReplaceRolePermissions godoc
// @Summary      Replace Role Permissions
// @Description  Atomically replaces the role's permission set.
// @Tags         Roles
// @Accept       json
// @Produce      json
// @Param        id   path int true "Role ID"
// @Param        body body types.ReplacePermissionsRequest true "New permission set"
// @Success      200 {object} types.Role
// @Failure      404 {object} types.Response "Role or permission not found"
// @Security     BearerAuth
// @Router       /roles/{id}/permissions [put]
func (h *HandlerImpl) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ReplaceRolePermissions"))

	roleID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	var req types.ReplacePermissionsRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := h.roleService.ReplaceRolePermissions(ctx, roleID, req.PermissionIDs)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, role)
}

// DeleteRole godoc
// @Summary      Delete Role
// @Description  Soft delete, refused while users are assigned to the role.
// @Tags         Roles
// @Produce      json
// @Param        id path int true "Role ID"
// @Success      200 {object} types.Response
// @Failure      404 {object} types.Response "Role not found"
// @Failure      409 {object} types.Response "Role still assigned"
// @Security     BearerAuth
// @Router       /roles/{id} [delete]
func (h *HandlerImpl) DeleteRole(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "DeleteRole"))

	roleID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	if err := h.roleService.DeleteRole(r.Context(), roleID); err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Role deactivated"})
}

// ListPermissions godoc
// @Summary      List Permissions
// @Tags         Roles
// @Produce      json
// @Success      200 {array} types.Permission
// @Security     BearerAuth
// @Router       /roles/permissions/all [get]
func (h *HandlerImpl) ListPermissions(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "ListPermissions"))

	perms, err := h.roleService.ListPermissions(r.Context())
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, perms)
}

// SeedPermissions godoc
// @Summary      Seed Default Permissions
// @Description  Creates the missing entries of the default permission catalog. Safe to repeat.
// @Tags         Roles
// @Produce      json
// @Success      200 {object} types.SeedResult
// @Security     BearerAuth
// @Router       /roles/permissions/init [post]
func (h *HandlerImpl) SeedPermissions(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "SeedPermissions"))

	result, err := h.roleService.SeedDefaultPermissions(r.Context())
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// GetUserPermissions godoc
// @Summary      User Permissions
// @Description  Effective permissions of a user through the assigned role.
// @Tags         Roles
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} types.UserPermissions
// @Failure      404 {object} types.Response "User not found"
// @Security     BearerAuth
// @Router       /roles/users/{id}/permissions [get]
func (h *HandlerImpl) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "GetUserPermissions"))

	userID, err := api.IDParam(r, "id")
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	report, err := h.roleService.UserPermissions(r.Context(), userID)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, report)
}
