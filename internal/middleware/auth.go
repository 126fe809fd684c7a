package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

// contextKey is a type for context keys
type contextKey string

const actorKey contextKey = "actor"

// Authenticator turns a bearer token into the calling actor
type Authenticator interface {
	ValidateToken(token string) (*service.Claims, error)
	ActorFromClaims(ctx context.Context, claims *service.Claims) (service.Actor, error)
}

// ActorFromToken validates token and returns its actor
func ActorFromToken(ctx context.Context, authn Authenticator, token string) (service.Actor, error) {
	claims, err := authn.ValidateToken(token)
	if err != nil {
		return service.Actor{}, err
	}
	return authn.ActorFromClaims(ctx, claims)
}

// WriteAuthError answers a failed ActorFromToken
func WriteAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrBanned) {
		api.Write(w, api.CodeAccountBanned, "account is banned")
		return
	}
	api.Write(w, api.CodeUnauthenticated, "invalid or expired token")
}

// Auth middleware for authenticating requests
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Write(w, api.CodeUnauthenticated, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				api.Write(w, api.CodeUnauthenticated, "invalid authorization header format")
				return
			}

			actor, err := ActorFromToken(r.Context(), authn, parts[1])
			if err != nil {
				WriteAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequirePermission rejects callers whose roles do not grant p
func RequirePermission(p permissions.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				api.Write(w, api.CodeUnauthenticated, "unauthenticated")
				return
			}
			if !actor.Can(p) {
				api.Write(w, api.CodePermissionDenied, "permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithActor(ctx context.Context, actor service.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFrom(ctx context.Context) (service.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(service.Actor)
	return actor, ok
}
