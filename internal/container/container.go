package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-logistics-backoffice/config"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/audit"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/auth"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/role"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/user"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/router"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/security"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

const (
	adminRoleName        = "admin"
	adminRoleDescription = "Acceso total al sistema"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client

	UserService user.UserService
	RoleService *role.RoleServiceImpl
	AuthService *auth.AuthServiceImpl

	AuthHandler *auth.HandlerImpl
	UserHandler *user.HandlerImpl
	RoleHandler *role.HandlerImpl

	closeAudit func()
}

// NewContainer wires repositories, services and handlers around an open pool.
func NewContainer(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*Container, error) {
	var rdb *redis.Client
	if cfg.Audit.Sink == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Repositories.Redis.Addr,
			Password: cfg.Repositories.Redis.Password,
			DB:       cfg.Repositories.Redis.DB,
		})
	}

	notifier, closeAudit, err := audit.NewNotifier(cfg.Audit, pool, rdb, logger)
	if err != nil {
		logger.Error("Failed to configure audit notifier", slog.Any("error", err))
		return nil, err
	}

	hasher := security.NewHasher(security.HasherConfig{Cost: cfg.Auth.BcryptCost})
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		SecretKey:      cfg.JWT.SecretKey,
		Issuer:         cfg.JWT.Issuer,
		AccessTokenTTL: cfg.JWT.AccessTokenTTL,
		ResetTokenTTL:  cfg.JWT.ResetTokenTTL,
	})
	if err != nil {
		closeAudit()
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	// repositories
	userRepo := user.NewPostgresUserRepo(pool, logger)
	roleRepo := role.NewPostgresRoleRepo(pool, logger)

	// services
	userService := user.NewUserService(userRepo, hasher, logger)
	roleService := role.NewRoleService(roleRepo, logger)

	opts := auth.Options{UniformLoginErrors: cfg.Auth.UniformLoginErrors}
	if cfg.IsTestMode() && cfg.Auth.BootstrapResetToken != "" {
		logger.Warn("Bootstrap reset token enabled for test mode")
		opts.BootstrapResetToken = cfg.Auth.BootstrapResetToken
	}
	limiter := auth.NewAttemptLimiter(cfg.Auth.MaxFailedAttempts, cfg.Auth.LockoutWindow)
	authService := auth.NewAuthService(userRepo, roleService, hasher, tokens, notifier, limiter, opts, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Redis:       rdb,
		UserService: userService,
		RoleService: roleService,
		AuthService: authService,
		AuthHandler: auth.NewHandlerImpl(authService, logger),
		UserHandler: user.NewHandlerImpl(userService, logger),
		RoleHandler: role.NewHandlerImpl(roleService, logger),
		closeAudit:  closeAudit,
	}, nil
}

// Router builds the API routes from the container's handlers.
func (c *Container) Router() http.Handler {
	return router.SetupRouter(&router.Config{
		AuthHandler:    c.AuthHandler,
		UserHandler:    c.UserHandler,
		RoleHandler:    c.RoleHandler,
		Authenticate:   auth.Authenticate(c.AuthService, c.Logger),
		Authorizer:     c.RoleService,
		HealthCheck:    c.Pool,
		AllowedOrigins: c.Config.CORS.AllowedOrigins,
		Logger:         c.Logger,
	})
}

// Bootstrap seeds the permission catalog, makes sure the admin role holds
// every permission and creates the configured admin user when missing.
func (c *Container) Bootstrap(ctx context.Context) error {
	bc := c.Config.Bootstrap
	l := c.Logger.With(slog.String("method", "Bootstrap"))

	if bc.SeedPermissions {
		res, err := c.RoleService.SeedDefaultPermissions(ctx)
		if err != nil {
			return fmt.Errorf("seeding permissions: %w", err)
		}
		l.InfoContext(ctx, "Permission catalog ready", slog.Int("created", res.CreatedCount))
	}

	adminRole, err := c.RoleService.EnsureRoleWithAllPermissions(ctx, adminRoleName, adminRoleDescription)
	if err != nil {
		return fmt.Errorf("ensuring admin role: %w", err)
	}

	if bc.AdminUsername == "" || bc.AdminPassword == "" {
		l.InfoContext(ctx, "No bootstrap admin configured")
		return nil
	}
	_, err = c.UserService.CreateUser(ctx, types.CreateUserRequest{
		Username: bc.AdminUsername,
		Password: bc.AdminPassword,
		RoleID:   &adminRole.ID,
	})
	switch {
	case err == nil:
		l.InfoContext(ctx, "Bootstrap admin created", slog.String("username", bc.AdminUsername))
	case errors.Is(err, types.ErrConflict):
		l.DebugContext(ctx, "Bootstrap admin already exists", slog.String("username", bc.AdminUsername))
	default:
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}
	return nil
}

// Close flushes the audit notifier and releases the redis client. The pool
// belongs to the caller.
func (c *Container) Close() {
	if c.closeAudit != nil {
		c.closeAudit()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
}
