package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/kitchenconnect/kitchen-service/internal/service"
	"github.com/rs/zerolog"
)

type stubAuthn struct {
	actor  service.Actor
	banned bool
}

func (s stubAuthn) ValidateToken(token string) (*service.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &service.Claims{UserID: s.actor.ID.String()}, nil
}

func (s stubAuthn) ActorFromClaims(ctx context.Context, claims *service.Claims) (service.Actor, error) {
	if s.banned {
		return service.Actor{}, service.ErrBanned
	}
	return s.actor, nil
}

func TestAuthRequiresBearerToken(t *testing.T) {
	actor := service.Actor{ID: uuid.New(), Roles: permissions.NewRoleSet(models.RoleDriver)}
	var seen service.Actor
	h := Auth(stubAuthn{actor: actor})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFrom(r.Context())
	}))

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token good", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("header %q: expected %d, got %d", tt.header, tt.want, rec.Code)
		}
	}
	if seen.ID != actor.ID {
		t.Fatalf("expected actor in context, got %+v", seen)
	}
}

func TestAuthRejectsBannedAccount(t *testing.T) {
	h := Auth(stubAuthn{banned: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a banned account")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	h := RequirePermission(permissions.CanManageMessages)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	run := func(roles ...models.UserRole) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		req = req.WithContext(WithActor(req.Context(), service.Actor{ID: uuid.New(), Roles: permissions.NewRoleSet(roles...)}))
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := run(models.RoleDriver); got != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", got)
	}
	if got := run(models.RoleModerator); got != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", got)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", rec.Code)
	}
}

func TestLoggerCapturesStatus(t *testing.T) {
	h := Logger(zerolog.Nop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}
