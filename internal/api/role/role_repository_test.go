package role

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

var permCols = []string{"id", "name", "resource", "action", "description", "is_active"}

func strPtr(s string) *string { return &s }

func newRepo(t *testing.T) (*PostgresRoleRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresRoleRepo(mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestReplaceRolePermissions_CommitsWholeSet(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM roles WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM permissions").
		WithArgs([]int64{5, 7}).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectExec("DELETE FROM role_permissions WHERE role_id = \\$1").
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("INSERT INTO role_permissions").
		WithArgs(int64(2), []int64{5, 7}).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	err := repo.ReplaceRolePermissions(context.Background(), 2, []int64{7, 5, 7})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRolePermissions_UnknownPermissionRollsBack(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM roles WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM permissions").
		WithArgs([]int64{5, 999}).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectRollback()

	err := repo.ReplaceRolePermissions(context.Background(), 2, []int64{5, 999})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "no DELETE may run before validation passes")
}

func TestReplaceRolePermissions_EmptySetClears(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM roles WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec("DELETE FROM role_permissions WHERE role_id = \\$1").
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceRolePermissions(context.Background(), 2, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRolePermissions_MissingRole(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM roles WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.ReplaceRolePermissions(context.Background(), 42, []int64{1})
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedPermissions_SkipsExisting(t *testing.T) {
	repo, mock := newRepo(t)
	catalog := []types.NewPermissionParams{
		{Name: "orders_read", Resource: "orders", Action: "read", Description: "Ver pedidos"},
		{Name: "orders_update", Resource: "orders", Action: "update", Description: "Actualizar pedidos"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO permissions").
		WithArgs("orders_read", "orders", "read", "Ver pedidos").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO permissions").
		WithArgs("orders_update", "orders", "update", "Actualizar pedidos").
		WillReturnRows(pgxmock.NewRows(permCols).AddRow(int64(11), "orders_update", "orders", "update", strPtr("Actualizar pedidos"), true))
	mock.ExpectCommit()

	created, err := repo.SeedPermissions(context.Background(), catalog)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "orders_update", created[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionsForRole(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("JOIN roles r ON r.id = rp.role_id").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(permCols).
			AddRow(int64(1), "orders_read", "orders", "read", strPtr("Ver pedidos"), true).
			AddRow(int64(2), "orders_update", "orders", "update", strPtr("Actualizar pedidos"), true))

	perms, err := repo.PermissionsForRole(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "orders", perms[0].Resource)
}

func TestListRoles_WithCounts(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("FROM roles r\\s+LEFT JOIN role_permissions").
		WithArgs(0, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "is_active", "count"}).
			AddRow(int64(1), "admin", strPtr("Administrador"), true, int64(25)))

	roles, err := repo.ListRoles(context.Background(), types.ListParams{Limit: 100})
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, 25, roles[0].PermissionsCount)
}

func TestGetRole_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("FROM roles r WHERE r.id = \\$1").
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetRole(context.Background(), 8)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGetRole_WithPermissions(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM roles r WHERE r.id = \\$1").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "is_active", "created_at", "updated_at"}).
			AddRow(int64(2), "operador", (*string)(nil), true, now, now))
	mock.ExpectQuery("JOIN role_permissions rp ON rp.permission_id = p.id").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(permCols).
			AddRow(int64(1), "orders_read", "orders", "read", strPtr("Ver pedidos"), true))

	role, err := repo.GetRole(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "operador", role.Name)
	assert.Len(t, role.Permissions, 1)
}

func TestUserRole_NoRole(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("FROM users u").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "role_id", "name"}).
			AddRow(int64(4), "bob", (*int64)(nil), (*string)(nil)))

	up, err := repo.UserRole(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, up.RoleID)
	assert.Empty(t, up.Permissions)
}
