package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/security"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

const maxUsernameLength = 50

// Ensure implementation satisfies the interface
var _ UserService = (*UserServiceImpl)(nil)

// UserService defines the user lifecycle operations.
type UserService interface {
	// Register creates a user without a role.
	Register(ctx context.Context, req types.CreateUserRequest) (*types.User, error)
	// CreateUser is the administrative create and may assign a role.
	CreateUser(ctx context.Context, req types.CreateUserRequest) (*types.User, error)
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	ListUsers(ctx context.Context, params types.ListParams) ([]types.User, error)
	UpdateUser(ctx context.Context, userID int64, req types.UpdateUserRequest) (*types.User, error)
	// DeleteUser is a soft delete.
	DeleteUser(ctx context.Context, userID int64) error
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
	hasher *security.Hasher
}

// NewUserService creates a new user service instance.
func NewUserService(repo UserRepo, hasher *security.Hasher, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
		hasher: hasher,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, req types.CreateUserRequest) (*types.User, error) {
	req.RoleID = nil
	return s.create(ctx, "Register", req)
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, req types.CreateUserRequest) (*types.User, error) {
	return s.create(ctx, "CreateUser", req)
}

func (s *UserServiceImpl) create(ctx context.Context, method string, req types.CreateUserRequest) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, method, trace.WithAttributes(
		attribute.String("user.username", req.Username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", method), slog.String("username", req.Username))
	l.DebugContext(ctx, "Creating user")

	if err := validateUsername(req.Username); err != nil {
		span.SetStatus(codes.Error, "invalid username")
		return nil, err
	}
	if err := security.ValidatePasswordPolicy(req.Password); err != nil {
		l.WarnContext(ctx, "Password rejected by policy", slog.String("rule", security.PolicyRule(err)))
		span.SetStatus(codes.Error, "password policy")
		return nil, err
	}
	if err := validateSecuritySlot(1, req.SecurityQuestion1, req.SecurityAnswer1); err != nil {
		return nil, err
	}
	if err := validateSecuritySlot(2, req.SecurityQuestion2, req.SecurityAnswer2); err != nil {
		return nil, err
	}

	taken, err := s.repo.UsernameTaken(ctx, req.Username, 0)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check username", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "username check failed")
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if taken {
		l.WarnContext(ctx, "Username already registered")
		span.SetStatus(codes.Error, "duplicate username")
		return nil, api.NewPublicError(types.ErrConflict, "Username already registered")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	params := types.NewUserParams{
		Username:          req.Username,
		PasswordHash:      passwordHash,
		SecurityQuestion1: nonEmpty(req.SecurityQuestion1),
		SecurityQuestion2: nonEmpty(req.SecurityQuestion2),
		RoleID:            req.RoleID,
	}
	if params.SecurityQuestion1 != nil {
		if params.SecurityAnswer1Hash, err = s.hashAnswer(*req.SecurityAnswer1); err != nil {
			return nil, err
		}
	}
	if params.SecurityQuestion2 != nil {
		if params.SecurityAnswer2Hash, err = s.hashAnswer(*req.SecurityAnswer2); err != nil {
			return nil, err
		}
	}

	user, err := s.repo.CreateUser(ctx, params)
	if err != nil {
		l.WarnContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	l.InfoContext(ctx, "User created", slog.Int64("userID", user.ID))
	span.SetStatus(codes.Ok, "User created")
	return user, nil
}

func (s *UserServiceImpl) hashAnswer(answer string) (*string, error) {
	digest, err := s.hasher.HashAnswer(answer)
	if err != nil {
		return nil, fmt.Errorf("error hashing security answer: %w", err)
	}
	return &digest, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	l := s.logger.With(slog.String("method", "GetUser"), slog.Int64("userID", userID))
	l.DebugContext(ctx, "Fetching user")

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return user, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, params types.ListParams) ([]types.User, error) {
	l := s.logger.With(slog.String("method", "ListUsers"))
	l.DebugContext(ctx, "Listing users", slog.Int("skip", params.Skip), slog.Int("limit", params.Limit))

	users, err := s.repo.ListUsers(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return users, nil
}

func (s *UserServiceImpl) UpdateUser(ctx context.Context, userID int64, req types.UpdateUserRequest) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateUser", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateUser"), slog.Int64("userID", userID))
	l.DebugContext(ctx, "Updating user")

	if req.Username != nil {
		if err := validateUsername(*req.Username); err != nil {
			return nil, err
		}
		taken, err := s.repo.UsernameTaken(ctx, *req.Username, userID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error checking username: %w", err)
		}
		if taken {
			l.WarnContext(ctx, "Username already registered")
			span.SetStatus(codes.Error, "duplicate username")
			return nil, api.NewPublicError(types.ErrConflict, "Username already registered")
		}
	}

	user, err := s.repo.UpdateUser(ctx, userID, types.UpdateUserParams{
		Username:  req.Username,
		RoleID:    req.RoleID,
		ClearRole: req.ClearRole,
		IsActive:  req.IsActive,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	l.InfoContext(ctx, "User updated")
	span.SetStatus(codes.Ok, "User updated")
	return user, nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID int64) error {
	l := s.logger.With(slog.String("method", "DeleteUser"), slog.Int64("userID", userID))
	l.DebugContext(ctx, "Soft deleting user")

	if err := s.repo.DeactivateUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	l.InfoContext(ctx, "User deactivated")
	return nil
}

func validateUsername(username string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return api.NewPublicError(types.ErrValidation, "username is required")
	case len(username) > maxUsernameLength:
		return api.NewPublicError(types.ErrValidation, fmt.Sprintf("username must be at most %d characters", maxUsernameLength))
	}
	return nil
}

// validateSecuritySlot requires question and answer to be both present or both absent.
func validateSecuritySlot(slot int, question, answer *string) error {
	hasQuestion := nonEmpty(question) != nil
	hasAnswer := answer != nil && strings.TrimSpace(*answer) != ""
	if hasQuestion != hasAnswer {
		return api.NewPublicError(types.ErrValidation,
			fmt.Sprintf("security question %d and its answer must be provided together", slot))
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
