package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appMiddleware "github.com/FACorreiaa/go-logistics-backoffice/app/middleware"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/auth"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/role"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/user"

	_ "github.com/FACorreiaa/go-logistics-backoffice/docs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler    auth.Handler
	UserHandler    user.Handler
	RoleHandler    role.Handler
	Authenticate   func(http.Handler) http.Handler
	Authorizer     role.Authorizer
	HealthCheck    Pinger
	AllowedOrigins []string
	Logger         *slog.Logger
}

// SetupRouter initializes the API routes. Server-wide middleware (request id,
// real ip, logging, recoverer) is applied in main before mounting.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appMiddleware.CaptureRequestMeta)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck.Ping(ctx); err != nil {
				cfg.Logger.WarnContext(ctx, "Health check failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	can := func(resource, action string) func(http.Handler) http.Handler {
		return role.RequirePermission(cfg.Authorizer, cfg.Logger, resource, action)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// public
		r.Post("/users/register", cfg.UserHandler.Register)
		r.Post("/users/login", cfg.AuthHandler.Login)
		r.Post("/users/recovery/start", cfg.AuthHandler.RecoveryStart)
		r.Post("/users/recovery/verify", cfg.AuthHandler.RecoveryVerify)
		r.Post("/users/recovery/reset", cfg.AuthHandler.RecoveryReset)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Get("/users/me", cfg.AuthHandler.Me)
			r.Post("/users/logout", cfg.AuthHandler.Logout)
			r.Put("/users/me/password", cfg.AuthHandler.ChangePassword)

			r.With(can("users", "read")).Get("/users", cfg.UserHandler.ListUsers)
			r.With(can("users", "create")).Post("/users", cfg.UserHandler.CreateUser)
			r.With(can("users", "read")).Get("/users/{id}", cfg.UserHandler.GetUser)
			r.With(can("users", "update")).Put("/users/{id}", cfg.UserHandler.UpdateUser)
			r.With(can("users", "delete")).Delete("/users/{id}", cfg.UserHandler.DeleteUser)

			r.Route("/roles", func(r chi.Router) {
				r.With(can("roles", "read")).Get("/", cfg.RoleHandler.ListRoles)
				r.With(can("roles", "create")).Post("/", cfg.RoleHandler.CreateRole)
				r.With(can("roles", "read")).Get("/permissions/all", cfg.RoleHandler.ListPermissions)
				r.With(can("roles", "create")).Post("/permissions/init", cfg.RoleHandler.SeedPermissions)
				r.With(can("roles", "read")).Get("/users/{id}/permissions", cfg.RoleHandler.GetUserPermissions)
				r.With(can("roles", "read")).Get("/{id}", cfg.RoleHandler.GetRole)
				r.With(can("roles", "update")).Put("/{id}", cfg.RoleHandler.UpdateRole)
				r.With(can("roles", "update")).Put("/{id}/permissions", cfg.RoleHandler.ReplaceRolePermissions)
				r.With(can("roles", "delete")).Delete("/{id}", cfg.RoleHandler.DeleteRole)
			})
		})
	})

	return r
}
