package role

import (
	"log/slog"
	"net/http"

	appMiddleware "github.com/FACorreiaa/go-logistics-backoffice/app/middleware"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
)

// RequirePermission lets the request through only when the authenticated user
// holds resource:action. It must run after the authentication middleware.
func RequirePermission(authz Authorizer, logger *slog.Logger, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user, ok := appMiddleware.UserFromContext(ctx)
			if !ok {
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			allowed, err := authz.Authorize(ctx, user, resource, action)
			if err != nil {
				logger.ErrorContext(ctx, "Permission check failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !allowed {
				api.ErrorResponse(w, r, http.StatusForbidden, "Insufficient permissions: "+resource+":"+action)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
