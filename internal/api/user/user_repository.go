package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user credential persistence.
type UserRepo interface {
	// CreateUser inserts a user whose secrets are already hashed.
	// Returns types.ErrConflict on a duplicate username and types.ErrNotFound
	// when RoleID references no role.
	CreateUser(ctx context.Context, params types.NewUserParams) (*types.User, error)
	// GetUserByID returns the user regardless of is_active.
	GetUserByID(ctx context.Context, userID int64) (*types.User, error)
	// GetUserByUsername is an exact, case-sensitive lookup.
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	// UsernameTaken checks uniqueness, ignoring excludeID (0 excludes nobody).
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	ListUsers(ctx context.Context, params types.ListParams) ([]types.User, error)
	UpdateUser(ctx context.Context, userID int64, params types.UpdateUserParams) (*types.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	// DeactivateUser marks a user as inactive (soft delete).
	DeactivateUser(ctx context.Context, userID int64) error
}

const userColumns = `id, username, password_hash,
	security_question_1, security_answer_1_hash,
	security_question_2, security_answer_2_hash,
	role_id, is_active, created_at, updated_at`

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresUserRepo(pgpool database.Pool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash,
		&u.SecurityQuestion1, &u.SecurityAnswer1Hash,
		&u.SecurityQuestion2, &u.SecurityAnswer2Hash,
		&u.RoleID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) CreateUser(ctx context.Context, params types.NewUserParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateUser"), slog.String("username", params.Username))
	l.DebugContext(ctx, "Inserting user")

	query := `
		INSERT INTO users (username, password_hash,
		                   security_question_1, security_answer_1_hash,
		                   security_question_2, security_answer_2_hash,
		                   role_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	u, err := scanUser(r.pgpool.QueryRow(ctx, query,
		params.Username, params.PasswordHash,
		params.SecurityQuestion1, params.SecurityAnswer1Hash,
		params.SecurityQuestion2, params.SecurityAnswer2Hash,
		params.RoleID,
	))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		switch {
		case database.IsUniqueViolation(err):
			l.WarnContext(ctx, "Username already exists")
			return nil, api.NewPublicError(types.ErrConflict, "Username already registered")
		case database.IsForeignKeyViolation(err):
			l.WarnContext(ctx, "Role does not exist")
			return nil, api.NewPublicError(types.ErrNotFound, "Role not found")
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return nil, fmt.Errorf("database error creating user: %w", err)
	}

	span.SetStatus(codes.Ok, "User created")
	return u, nil
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID int64) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()

	u, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.NewPublicError(types.ErrNotFound, "User not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching user %d: %w", userID, err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByUsername", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	u, err := scanUser(r.pgpool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.NewPublicError(types.ErrNotFound, "User not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching user by username: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	var taken bool
	err := r.pgpool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)",
		username, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("database error checking username: %w", err)
	}
	return taken, nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context, params types.ListParams) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "ListUsers", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.Int("skip", params.Skip),
		attribute.Int("limit", params.Limit),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id OFFSET $1 LIMIT $2",
		params.Skip, params.Limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) UpdateUser(ctx context.Context, userID int64, params types.UpdateUserParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateUser"), slog.Int64("userID", userID))

	var setClauses []string
	var args []any
	argID := 1

	if params.Username != nil {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", argID))
		args = append(args, *params.Username)
		argID++
	}
	if params.ClearRole {
		setClauses = append(setClauses, "role_id = NULL")
	} else if params.RoleID != nil {
		setClauses = append(setClauses, fmt.Sprintf("role_id = $%d", argID))
		args = append(args, *params.RoleID)
		argID++
	}
	if params.IsActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", argID))
		args = append(args, *params.IsActive)
		argID++
	}

	if len(setClauses) == 0 {
		l.DebugContext(ctx, "UpdateUser called with no fields to update")
		return r.GetUserByID(ctx, userID)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argID, userColumns)

	u, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, api.NewPublicError(types.ErrNotFound, "User not found")
		case database.IsUniqueViolation(err):
			return nil, api.NewPublicError(types.ErrConflict, "Username already registered")
		case database.IsForeignKeyViolation(err):
			return nil, api.NewPublicError(types.ErrNotFound, "Role not found")
		}
		l.ErrorContext(ctx, "Failed to execute update user query", slog.Any("error", err))
		return nil, fmt.Errorf("database error updating user: %w", err)
	}

	span.SetStatus(codes.Ok, "User updated")
	return u, nil
}

func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdatePassword", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
		passwordHash, time.Now(), userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.NewPublicError(types.ErrNotFound, "User not found")
	}
	return nil
}

func (r *PostgresUserRepo) DeactivateUser(ctx context.Context, userID int64) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "DeactivateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.id", userID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "DeactivateUser"), slog.Int64("userID", userID))
	l.DebugContext(ctx, "Deactivating user")

	tag, err := r.pgpool.Exec(ctx,
		"UPDATE users SET is_active = FALSE, updated_at = $1 WHERE id = $2",
		time.Now(), userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to deactivate user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error deactivating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.NewPublicError(types.ErrNotFound, "User not found")
	}

	l.InfoContext(ctx, "User deactivated")
	span.SetStatus(codes.Ok, "User deactivated")
	return nil
}
