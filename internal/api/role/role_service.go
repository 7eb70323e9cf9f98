package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-logistics-backoffice/app/observability/metrics"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

const maxRoleNameLength = 50

var _ RoleService = (*RoleServiceImpl)(nil)

// Authorizer is the yes/no decision consumed by protected endpoints.
type Authorizer interface {
	Authorize(ctx context.Context, user *types.User, resource, action string) (bool, error)
}

// RoleService is the RBAC resolver plus role administration.
type RoleService interface {
	Authorizer

	// PermissionsForUser resolves the user's effective permissions through
	// the assigned role. A user without a role resolves to an empty set.
	PermissionsForUser(ctx context.Context, userID int64) ([]types.Permission, error)
	HasPermission(ctx context.Context, userID int64, resource, action string) (bool, error)
	UserPermissions(ctx context.Context, userID int64) (*types.UserPermissions, error)
	RoleRef(ctx context.Context, roleID *int64) (*types.RoleRef, error)

	ListRoles(ctx context.Context, params types.ListParams) ([]types.RoleSummary, error)
	GetRole(ctx context.Context, roleID int64) (*types.Role, error)
	CreateRole(ctx context.Context, req types.CreateRoleRequest) (*types.Role, error)
	UpdateRole(ctx context.Context, roleID int64, req types.UpdateRoleRequest) (*types.Role, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*types.Role, error)
	// DeleteRole soft deletes and is refused while any user references the role.
	DeleteRole(ctx context.Context, roleID int64) error

	ListPermissions(ctx context.Context) ([]types.Permission, error)
	// SeedDefaultPermissions is idempotent: a second run creates nothing.
	SeedDefaultPermissions(ctx context.Context) (*types.SeedResult, error)
	// EnsureRoleWithAllPermissions creates the role if absent and grants it
	// every active permission.
	EnsureRoleWithAllPermissions(ctx context.Context, name, description string) (*types.Role, error)
}

type RoleServiceImpl struct {
	logger *slog.Logger
	repo   RoleRepo
}

func NewRoleService(repo RoleRepo, logger *slog.Logger) *RoleServiceImpl {
	return &RoleServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *RoleServiceImpl) permissionsForRole(ctx context.Context, roleID *int64) ([]types.Permission, error) {
	if roleID == nil {
		return []types.Permission{}, nil
	}
	perms, err := s.repo.PermissionsForRole(ctx, *roleID)
	if err != nil {
		return nil, fmt.Errorf("error resolving permissions for role %d: %w", *roleID, err)
	}
	return perms, nil
}

func (s *RoleServiceImpl) PermissionsForUser(ctx context.Context, userID int64) ([]types.Permission, error) {
	ctx, span := otel.Tracer("RoleService").Start(ctx, "PermissionsForUser", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	ur, err := s.repo.UserRole(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, fmt.Errorf("error loading user role: %w", err)
	}
	return s.permissionsForRole(ctx, ur.RoleID)
}

func (s *RoleServiceImpl) HasPermission(ctx context.Context, userID int64, resource, action string) (bool, error) {
	perms, err := s.PermissionsForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	allowed := grants(perms, resource, action)
	metrics.Get().RecordPermissionCheck(ctx, resource, action, allowed)
	return allowed, nil
}

func (s *RoleServiceImpl) Authorize(ctx context.Context, user *types.User, resource, action string) (bool, error) {
	if user == nil || !user.IsActive {
		return false, nil
	}
	l := s.logger.With(slog.String("method", "Authorize"), slog.Int64("userID", user.ID))

	perms, err := s.permissionsForRole(ctx, user.RoleID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve permissions", slog.Any("error", err))
		return false, err
	}
	allowed := grants(perms, resource, action)
	metrics.Get().RecordPermissionCheck(ctx, resource, action, allowed)
	if !allowed {
		l.WarnContext(ctx, "Permission denied", slog.String("resource", resource), slog.String("action", action))
	}
	return allowed, nil
}

func grants(perms []types.Permission, resource, action string) bool {
	for _, p := range perms {
		if p.IsActive && p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}

func (s *RoleServiceImpl) UserPermissions(ctx context.Context, userID int64) (*types.UserPermissions, error) {
	ur, err := s.repo.UserRole(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user role: %w", err)
	}
	perms, err := s.permissionsForRole(ctx, ur.RoleID)
	if err != nil {
		return nil, err
	}
	ur.Permissions = perms
	ur.TotalPermissions = len(perms)
	return ur, nil
}

func (s *RoleServiceImpl) RoleRef(ctx context.Context, roleID *int64) (*types.RoleRef, error) {
	if roleID == nil {
		return nil, nil
	}
	role, err := s.repo.GetRole(ctx, *roleID)
	if err != nil {
		return nil, fmt.Errorf("error fetching role %d: %w", *roleID, err)
	}
	return &types.RoleRef{ID: role.ID, Name: role.Name}, nil
}

func (s *RoleServiceImpl) ListRoles(ctx context.Context, params types.ListParams) ([]types.RoleSummary, error) {
	roles, err := s.repo.ListRoles(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error listing roles: %w", err)
	}
	return roles, nil
}

func (s *RoleServiceImpl) GetRole(ctx context.Context, roleID int64) (*types.Role, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("error fetching role: %w", err)
	}
	return role, nil
}

func (s *RoleServiceImpl) CreateRole(ctx context.Context, req types.CreateRoleRequest) (*types.Role, error) {
	ctx, span := otel.Tracer("RoleService").Start(ctx, "CreateRole", trace.WithAttributes(
		attribute.String("role.name", req.Name),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateRole"), slog.String("name", req.Name))
	l.DebugContext(ctx, "Creating role")

	if err := validateRoleName(req.Name); err != nil {
		return nil, err
	}
	taken, err := s.repo.RoleNameTaken(ctx, req.Name, 0)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error checking role name: %w", err)
	}
	if taken {
		span.SetStatus(codes.Error, "duplicate role name")
		return nil, api.NewPublicError(types.ErrConflict, "Role name already exists")
	}

	role, err := s.repo.CreateRole(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create role failed")
		return nil, fmt.Errorf("error creating role: %w", err)
	}

	l.InfoContext(ctx, "Role created", slog.Int64("roleID", role.ID), slog.Int("permissions", len(role.Permissions)))
	span.SetStatus(codes.Ok, "Role created")
	return role, nil
}

func (s *RoleServiceImpl) UpdateRole(ctx context.Context, roleID int64, req types.UpdateRoleRequest) (*types.Role, error) {
	ctx, span := otel.Tracer("RoleService").Start(ctx, "UpdateRole", trace.WithAttributes(
		attribute.Int64("role.id", roleID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateRole"), slog.Int64("roleID", roleID))
	l.DebugContext(ctx, "Updating role")

	if req.Name != nil {
		if err := validateRoleName(*req.Name); err != nil {
			return nil, err
		}
		taken, err := s.repo.RoleNameTaken(ctx, *req.Name, roleID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error checking role name: %w", err)
		}
		if taken {
			span.SetStatus(codes.Error, "duplicate role name")
			return nil, api.NewPublicError(types.ErrConflict, "Role name already exists")
		}
	}

	role, err := s.repo.UpdateRole(ctx, roleID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update role failed")
		return nil, fmt.Errorf("error updating role: %w", err)
	}

	l.InfoContext(ctx, "Role updated")
	span.SetStatus(codes.Ok, "Role updated")
	return role, nil
}

func (s *RoleServiceImpl) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) (*types.Role, error) {
	l := s.logger.With(slog.String("method", "ReplaceRolePermissions"), slog.Int64("roleID", roleID))
	l.DebugContext(ctx, "Replacing role permissions", slog.Int("count", len(permissionIDs)))

	if err := s.repo.ReplaceRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return nil, fmt.Errorf("error replacing role permissions: %w", err)
	}
	return s.GetRole(ctx, roleID)
}

func (s *RoleServiceImpl) DeleteRole(ctx context.Context, roleID int64) error {
	l := s.logger.With(slog.String("method", "DeleteRole"), slog.Int64("roleID", roleID))

	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return fmt.Errorf("error fetching role: %w", err)
	}
	count, err := s.repo.CountUsersWithRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("error counting role users: %w", err)
	}
	if count > 0 {
		l.WarnContext(ctx, "Role still assigned", slog.Int("users", count))
		return api.NewPublicError(types.ErrConflict,
			fmt.Sprintf("Role is assigned to %d user(s) and cannot be deleted", count))
	}
	if err := s.repo.DeactivateRole(ctx, roleID); err != nil {
		return fmt.Errorf("error deleting role: %w", err)
	}
	l.InfoContext(ctx, "Role deactivated")
	return nil
}

func (s *RoleServiceImpl) ListPermissions(ctx context.Context) ([]types.Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing permissions: %w", err)
	}
	return perms, nil
}

func (s *RoleServiceImpl) SeedDefaultPermissions(ctx context.Context) (*types.SeedResult, error) {
	l := s.logger.With(slog.String("method", "SeedDefaultPermissions"))

	created, err := s.repo.SeedPermissions(ctx, DefaultPermissions())
	if err != nil {
		l.ErrorContext(ctx, "Failed to seed permissions", slog.Any("error", err))
		return nil, fmt.Errorf("error seeding permissions: %w", err)
	}

	l.InfoContext(ctx, "Default permissions seeded", slog.Int("created", len(created)))
	return &types.SeedResult{
		Message:      fmt.Sprintf("%d permissions created", len(created)),
		CreatedCount: len(created),
		Created:      created,
	}, nil
}

func (s *RoleServiceImpl) EnsureRoleWithAllPermissions(ctx context.Context, name, description string) (*types.Role, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing permissions: %w", err)
	}
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}

	existing, err := s.repo.GetRoleByName(ctx, name)
	switch {
	case err == nil:
		if len(existing.Permissions) == len(ids) {
			return existing, nil
		}
		return s.ReplaceRolePermissions(ctx, existing.ID, ids)
	case isNotFound(err):
		return s.CreateRole(ctx, types.CreateRoleRequest{Name: name, Description: &description, PermissionIDs: ids})
	default:
		return nil, fmt.Errorf("error fetching role %s: %w", name, err)
	}
}

func validateRoleName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return api.NewPublicError(types.ErrValidation, "role name is required")
	case len(name) > maxRoleNameLength:
		return api.NewPublicError(types.ErrValidation, fmt.Sprintf("role name must be at most %d characters", maxRoleNameLength))
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
