package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	appMiddleware "github.com/FACorreiaa/go-logistics-backoffice/app/middleware"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

// UserResolver turns a bearer token into an authenticated user.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (*types.User, error)
}

// Authenticate validates the bearer access token and stores the active user
// on the request context.
func Authenticate(resolver UserResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			token, ok := appMiddleware.BearerToken(r)
			if !ok {
				l.DebugContext(ctx, "Missing or malformed Authorization header")
				w.Header().Set("WWW-Authenticate", "Bearer")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			user, err := resolver.CurrentUser(ctx, token)
			if err != nil {
				if errors.Is(err, types.ErrUnauthenticated) {
					l.WarnContext(ctx, "Authentication failed", slog.Any("error", err))
					w.Header().Set("WWW-Authenticate", "Bearer")
					api.ErrorResponse(w, r, http.StatusUnauthorized, api.PublicMessage(err, "Invalid or expired token"))
					return
				}
				api.WriteServiceError(w, r, l, err)
				return
			}

			l.DebugContext(ctx, "Authenticated", slog.Int64("userID", user.ID))
			next.ServeHTTP(w, r.WithContext(appMiddleware.WithUser(ctx, user)))
		})
	}
}
