package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-logistics-backoffice/app/db"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

var _ RoleRepo = (*PostgresRoleRepo)(nil)

// RoleRepo persists roles, permissions and the role_permissions join.
type RoleRepo interface {
	ListRoles(ctx context.Context, params types.ListParams) ([]types.RoleSummary, error)
	// GetRole returns the role with its active permissions.
	GetRole(ctx context.Context, roleID int64) (*types.Role, error)
	GetRoleByName(ctx context.Context, name string) (*types.Role, error)
	RoleNameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
	// CreateRole inserts the role and its permission set in one transaction.
	CreateRole(ctx context.Context, req types.CreateRoleRequest) (*types.Role, error)
	// UpdateRole applies the partial update and, when requested, the
	// permission replace in one transaction.
	UpdateRole(ctx context.Context, roleID int64, req types.UpdateRoleRequest) (*types.Role, error)
	// ReplaceRolePermissions swaps the whole permission set atomically.
	// Unknown or inactive permission ids abort with types.ErrNotFound.
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	CountUsersWithRole(ctx context.Context, roleID int64) (int, error)
	DeactivateRole(ctx context.Context, roleID int64) error

	ListPermissions(ctx context.Context) ([]types.Permission, error)
	// PermissionsForRole returns the active permissions of an active role.
	PermissionsForRole(ctx context.Context, roleID int64) ([]types.Permission, error)
	// SeedPermissions inserts the catalog entries whose names are missing and
	// returns only the rows it created.
	SeedPermissions(ctx context.Context, perms []types.NewPermissionParams) ([]types.Permission, error)

	// UserRole resolves a user's role assignment for permission reports.
	UserRole(ctx context.Context, userID int64) (*types.UserPermissions, error)
}

const roleColumns = "r.id, r.name, r.description, r.is_active, r.created_at, r.updated_at"
const permissionColumns = "p.id, p.name, p.resource, p.action, p.description, p.is_active"

type PostgresRoleRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresRoleRepo(pgpool database.Pool, logger *slog.Logger) *PostgresRoleRepo {
	return &PostgresRoleRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanRole(row pgx.Row) (*types.Role, error) {
	var role types.Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	role.Permissions = []types.Permission{}
	return &role, nil
}

func collectPermissions(rows pgx.Rows) ([]types.Permission, error) {
	defer rows.Close()
	perms := make([]types.Permission, 0)
	for rows.Next() {
		var p types.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.IsActive); err != nil {
			return nil, fmt.Errorf("error scanning permission row: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permission rows: %w", err)
	}
	return perms, nil
}

func rolePermissions(ctx context.Context, q querier, roleID int64) ([]types.Permission, error) {
	rows, err := q.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 AND p.is_active = TRUE
		ORDER BY p.id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("database error fetching role permissions: %w", err)
	}
	return collectPermissions(rows)
}

func (r *PostgresRoleRepo) ListRoles(ctx context.Context, params types.ListParams) ([]types.RoleSummary, error) {
	ctx, span := otel.Tracer("RoleRepo").Start(ctx, "ListRoles", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "roles"),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.is_active, COUNT(rp.permission_id)
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		GROUP BY r.id
		ORDER BY r.id
		OFFSET $1 LIMIT $2`, params.Skip, params.Limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing roles: %w", err)
	}
	defer rows.Close()

	roles := make([]types.RoleSummary, 0)
	for rows.Next() {
		var rs types.RoleSummary
		var count int64
		if err := rows.Scan(&rs.ID, &rs.Name, &rs.Description, &rs.IsActive, &count); err != nil {
			return nil, fmt.Errorf("error scanning role row: %w", err)
		}
		rs.PermissionsCount = int(count)
		roles = append(roles, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}
	return roles, nil
}

func (r *PostgresRoleRepo) GetRole(ctx context.Context, roleID int64) (*types.Role, error) {
	ctx, span := otel.Tracer("RoleRepo").Start(ctx, "GetRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.Int64("db.role.id", roleID),
	))
	defer span.End()

	return r.fetchRole(ctx, r.pgpool, "r.id = $1", roleID)
}

func (r *PostgresRoleRepo) GetRoleByName(ctx context.Context, name string) (*types.Role, error) {
	return r.fetchRole(ctx, r.pgpool, "r.name = $1", name)
}

func (r *PostgresRoleRepo) fetchRole(ctx context.Context, q querier, where string, arg any) (*types.Role, error) {
	role, err := scanRole(q.QueryRow(ctx, "SELECT "+roleColumns+" FROM roles r WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.NewPublicError(types.ErrNotFound, "Role not found")
		}
		return nil, fmt.Errorf("database error fetching role: %w", err)
	}
	if role.Permissions, err = rolePermissions(ctx, q, role.ID); err != nil {
		return nil, err
	}
	return role, nil
}

func (r *PostgresRoleRepo) RoleNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var taken bool
	err := r.pgpool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1 AND id <> $2)",
		name, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("database error checking role name: %w", err)
	}
	return taken, nil
}

func (r *PostgresRoleRepo) CreateRole(ctx context.Context, req types.CreateRoleRequest) (*types.Role, error) {
	ctx, span := otel.Tracer("RoleRepo").Start(ctx, "CreateRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "roles"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateRole"), slog.String("name", req.Name))

	var role *types.Role
	err := database.WithTx(ctx, r.pgpool, func(tx pgx.Tx) error {
		var err error
		role, err = scanRole(tx.QueryRow(ctx, `
			INSERT INTO roles AS r (name, description)
			VALUES ($1, $2)
			RETURNING `+roleColumns, req.Name, req.Description))
		if err != nil {
			if database.IsUniqueViolation(err) {
				return api.NewPublicError(types.ErrConflict, "Role name already exists")
			}
			return fmt.Errorf("database error inserting role: %w", err)
		}
		if err := replacePermissions(ctx, tx, role.ID, req.PermissionIDs); err != nil {
			return err
		}
		role.Permissions, err = rolePermissions(ctx, tx, role.ID)
		return err
	})
	if err != nil {
		l.WarnContext(ctx, "Failed to create role", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create role failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Role created")
	return role, nil
}

func (r *PostgresRoleRepo) UpdateRole(ctx context.Context, roleID int64, req types.UpdateRoleRequest) (*types.Role, error) {
	ctx, span := otel.Tracer("RoleRepo").Start(ctx, "UpdateRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "roles"),
		attribute.Int64("db.role.id", roleID),
	))
	defer span.End()

	var setClauses []string
	var args []any
	argID := 1
	if req.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *req.Name)
		argID++
	}
	if req.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argID))
		args = append(args, *req.Description)
		argID++
	}
	if req.IsActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", argID))
		args = append(args, *req.IsActive)
		argID++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++
	args = append(args, roleID)

	query := fmt.Sprintf("UPDATE roles SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argID)

	var role *types.Role
	err := database.WithTx(ctx, r.pgpool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return api.NewPublicError(types.ErrConflict, "Role name already exists")
			}
			return fmt.Errorf("database error updating role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return api.NewPublicError(types.ErrNotFound, "Role not found")
		}
		if req.PermissionIDs != nil {
			if err := replacePermissions(ctx, tx, roleID, *req.PermissionIDs); err != nil {
				return err
			}
		}
		role, err = r.fetchRole(ctx, tx, "r.id = $1", roleID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update role failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Role updated")
	return role, nil
}

func (r *PostgresRoleRepo) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	ctx, span := otel.Tracer("RoleRepo").Start(ctx, "ReplaceRolePermissions", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "role_permissions"),
		attribute.Int64("db.role.id", roleID),
		attribute.Int("permissions.count", len(permissionIDs)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ReplaceRolePermissions"), slog.Int64("roleID", roleID))

	err := database.WithTx(ctx, r.pgpool, func(tx pgx.Tx) error {
		var id int64
		// row lock serializes concurrent replaces of the same role
		err := tx.QueryRow(ctx, "SELECT id FROM roles WHERE id = $1 FOR UPDATE", roleID).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return api.NewPublicError(types.ErrNotFound, "Role not found")
			}
			return fmt.Errorf("database error locking role: %w", err)
		}
		return replacePermissions(ctx, tx, roleID, permissionIDs)
	})
	if err != nil {
		l.WarnContext(ctx, "Permission replace rolled back", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
		return err
	}

	l.InfoContext(ctx, "Role permissions replaced", slog.Int("count", len(permissionIDs)))
	span.SetStatus(codes.Ok, "Permissions replaced")
	return nil
}

// replacePermissions deletes the role's rows and inserts the new set. It must
// run inside the caller's transaction.
func replacePermissions(ctx context.Context, tx pgx.Tx, roleID int64, permissionIDs []int64) error {
	ids := slices.Clone(permissionIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	if len(ids) > 0 {
		var found int64
		err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM permissions WHERE id = ANY($1) AND is_active = TRUE",
			ids).Scan(&found)
		if err != nil {
			return fmt.Errorf("database error validating permissions: %w", err)
		}
		if int(found) != len(ids) {
			return api.NewPublicError(types.ErrNotFound, "One or more permissions not found")
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID); err != nil {
		return fmt.Errorf("database error clearing role permissions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO role_permissions (role_id, permission_id) SELECT $1, unnest($2::bigint[])",
		roleID, ids); err != nil {
		return fmt.Errorf("database error inserting role permissions: %w", err)
	}
	return nil
}

func (r *PostgresRoleRepo) CountUsersWithRole(ctx context.Context, roleID int64) (int, error) {
	var count int64
	err := r.pgpool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE role_id = $1", roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting role users: %w", err)
	}
	return int(count), nil
}

func (r *PostgresRoleRepo) DeactivateRole(ctx context.Context, roleID int64) error {
	tag, err := r.pgpool.Exec(ctx,
		"UPDATE roles SET is_active = FALSE, updated_at = $1 WHERE id = $2",
		time.Now(), roleID)
	if err != nil {
		return fmt.Errorf("database error deactivating role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.NewPublicError(types.ErrNotFound, "Role not found")
	}
	return nil
}

func (r *PostgresRoleRepo) ListPermissions(ctx context.Context) ([]types.Permission, error) {
	rows, err := r.pgpool.Query(ctx,
		"SELECT "+permissionColumns+" FROM permissions p WHERE p.is_active = TRUE ORDER BY p.resource, p.action")
	if err != nil {
		return nil, fmt.Errorf("database error listing permissions: %w", err)
	}
	return collectPermissions(rows)
}

func (r *PostgresRoleRepo) PermissionsForRole(ctx context.Context, roleID int64) ([]types.Permission, error) {
	ctx, span := otel.Tracer("RoleRepo").Start(ctx, "PermissionsForRole", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.Int64("db.role.id", roleID),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
		SELECT `+permissionColumns+`
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles r ON r.id = rp.role_id
		WHERE rp.role_id = $1 AND r.is_active = TRUE AND p.is_active = TRUE
		ORDER BY p.id`, roleID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error resolving permissions: %w", err)
	}
	return collectPermissions(rows)
}

func (r *PostgresRoleRepo) SeedPermissions(ctx context.Context, perms []types.NewPermissionParams) ([]types.Permission, error) {
	ctx, span := otel.Tracer("RoleRepo").Start(ctx, "SeedPermissions", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "permissions"),
		attribute.Int("catalog.size", len(perms)),
	))
	defer span.End()

	created := make([]types.Permission, 0)
	err := database.WithTx(ctx, r.pgpool, func(tx pgx.Tx) error {
		for _, perm := range perms {
			var p types.Permission
			err := tx.QueryRow(ctx, `
				INSERT INTO permissions AS p (name, resource, action, description)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT DO NOTHING
				RETURNING `+permissionColumns,
				perm.Name, perm.Resource, perm.Action, perm.Description,
			).Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.IsActive)
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("database error seeding permission %s: %w", perm.Name, err)
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "seed failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Permissions seeded")
	return created, nil
}

func (r *PostgresRoleRepo) UserRole(ctx context.Context, userID int64) (*types.UserPermissions, error) {
	var up types.UserPermissions
	err := r.pgpool.QueryRow(ctx, `
		SELECT u.id, u.username, u.role_id, r.name
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`, userID).Scan(&up.UserID, &up.Username, &up.RoleID, &up.RoleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.NewPublicError(types.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("database error fetching user role: %w", err)
	}
	up.Permissions = []types.Permission{}
	return &up, nil
}
