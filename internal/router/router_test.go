package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/api/handler"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/kitchenconnect/kitchen-service/internal/service"
	"github.com/rs/zerolog"
)

// tokenAuth treats the bearer token as a comma separated role list
type tokenAuth struct{}

func (tokenAuth) ValidateToken(token string) (*service.Claims, error) {
	if token == "bad" {
		return nil, errors.New("invalid token")
	}
	return &service.Claims{UserID: uuid.NewString(), Roles: strings.Split(token, ",")}, nil
}

func (tokenAuth) ActorFromClaims(ctx context.Context, c *service.Claims) (service.Actor, error) {
	roles, _ := permissions.ParseRoles(c.Roles)
	return service.Actor{ID: uuid.MustParse(c.UserID), Roles: roles}, nil
}

func newTestRouter(t *testing.T, health HealthChecker) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	db := sqlx.NewDb(conn, "postgres")

	repos := repository.NewFactory(db)
	log := zerolog.Nop()
	h := New(Deps{
		Users:     handler.NewUserHandler(nil),
		Orders:    handler.NewOrderHandler(nil, nil),
		Messaging: handler.NewMessagingHandler(nil, "s3cret"),
		Dishes:    handler.NewDishHandler(service.NewDishService(repos.Dish, repos.User, log)),
		WebSocket: http.NotFoundHandler(),
		Authn:     tokenAuth{},
		Health:    health,
		Log:       log,
	})
	return h, mock
}

func do(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	h, _ := newTestRouter(t, func(ctx context.Context) error { return nil })
	if rec := do(h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	down, _ := newTestRouter(t, func(ctx context.Context) error { return errors.New("down") })
	rec := do(down, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != api.CodeUnavailable {
		t.Fatalf("expected UNAVAILABLE, got %s", body.Code)
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(h, http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != api.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", body.Code)
	}
}

func TestAuthenticatedRoutes(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/me/permissions", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/me/permissions", "bad", http.StatusUnauthorized},
		{"own permissions", http.MethodGet, "/api/me/permissions", "customer", http.StatusOK},
		{"list users as chef", http.MethodGet, "/api/users/", "chef", http.StatusForbidden},
		{"ban as driver", http.MethodPost, "/api/users/" + uuid.NewString() + "/ban", "driver", http.StatusForbidden},
		{"conversations as customer", http.MethodGet, "/api/conversations", "customer", http.StatusForbidden},
		{"create dish as driver", http.MethodPost, "/api/dishes", "driver", http.StatusForbidden},
		{"delete dish as moderator", http.MethodDelete, "/api/dishes/" + uuid.NewString(), "moderator", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.method, tt.path, tt.token)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMyPermissionsMergesRoles(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(h, http.MethodGet, "/api/me/permissions", "customer,chef")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		PrimaryRole models.UserRole          `json:"primary_role"`
		Permissions []permissions.Permission `json:"permissions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.PrimaryRole != models.RoleChef {
		t.Fatalf("expected chef primary role, got %s", body.PrimaryRole)
	}
	found := false
	for _, p := range body.Permissions {
		if p == permissions.CanEditDishes {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected canEditDishes in %v", body.Permissions)
	}
}

func TestPublicDishBrowse(t *testing.T) {
	h, mock := newTestRouter(t, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM dishes WHERE category = \$1 ORDER BY name`).
		WithArgs("Thai").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "chef_id", "chef_name", "name", "description", "category", "price", "prep_minutes",
			"image_url", "available", "created_at", "updated_at",
		}).AddRow(uuid.NewString(), uuid.NewString(), "Chef Ann", "Pad Thai", nil, "Thai", 15.0, 20, nil, true, now, now))

	rec := do(h, http.MethodGet, "/api/dishes?category=Thai", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var dishes []models.Dish
	if err := json.NewDecoder(rec.Body).Decode(&dishes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dishes) != 1 || dishes[0].Name != "Pad Thai" {
		t.Fatalf("unexpected dishes: %+v", dishes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDishBrowseRejectsBadChefID(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	if rec := do(h, http.MethodGet, "/api/dishes?chef_id=nope", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInboundWebhookRequiresSecret(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(h, http.MethodPost, "/webhooks/whatsapp", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
