package appMiddleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

type contextKey string

const (
	UserKey        contextKey = "user"
	RequestMetaKey contextKey = "requestMeta"
)

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

func UserFromContext(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(UserKey).(*types.User)
	return user, ok && user != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// ClientIP returns the caller address without the port. chi's RealIP
// middleware has already rewritten RemoteAddr from X-Forwarded-For/X-Real-IP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestMeta captures the request attributes that audit events record.
func RequestMeta(r *http.Request) types.RequestMeta {
	return types.RequestMeta{
		IPAddress: ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// CaptureRequestMeta puts RequestMeta on the context for services that
// only receive a context.
func CaptureRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), RequestMetaKey, RequestMeta(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestMetaFromContext(ctx context.Context) types.RequestMeta {
	meta, _ := ctx.Value(RequestMetaKey).(types.RequestMeta)
	return meta
}
