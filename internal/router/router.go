package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/api/handler"
	"github.com/kitchenconnect/kitchen-service/internal/metrics"
	"github.com/kitchenconnect/kitchen-service/internal/middleware"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// Deps are the handlers and infrastructure the router mounts
type Deps struct {
	Users     *handler.UserHandler
	Orders    *handler.OrderHandler
	Messaging *handler.MessagingHandler
	Dishes    *handler.DishHandler
	WebSocket http.Handler
	Authn     middleware.Authenticator
	Metrics   *metrics.Metrics
	Health    HealthChecker
	Log       zerolog.Logger
}

// New builds the HTTP routes
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log, d.Metrics))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", healthz(d.Health))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Handle("/ws", d.WebSocket)
	r.Post("/webhooks/whatsapp", d.Messaging.Inbound)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", d.Users.Signup)
		r.Post("/auth/login", d.Users.Login)
		r.Get("/stages", d.Orders.Stages)
		r.Get("/dishes", d.Dishes.List)
		r.Get("/dishes/{id}", d.Dishes.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(d.Authn))

			r.Get("/me", d.Users.Me)
			r.Put("/me", d.Users.UpdateMe)
			r.Delete("/me", d.Users.DeleteMe)
			r.Get("/me/permissions", d.Users.MyPermissions)

			r.Route("/users", func(r chi.Router) {
				r.With(middleware.RequirePermission(permissions.CanViewAllUsers)).Get("/", d.Users.ListUsers)
				r.With(middleware.RequirePermission(permissions.CanBanUsers)).Post("/{id}/ban", d.Users.Ban)
				r.With(middleware.RequirePermission(permissions.CanBanUsers)).Delete("/{id}/ban", d.Users.Unban)
				r.Post("/{id}/roles", d.Users.GrantRole)
				r.Delete("/{id}/roles/{role}", d.Users.RevokeRole)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", d.Orders.List)
				r.Post("/", d.Orders.Create)
				r.Get("/available", d.Orders.Available)
				r.Get("/{id}", d.Orders.Get)
				r.Post("/{id}/advance", d.Orders.Advance)
				r.Get("/{id}/stage", d.Orders.Stage)
				r.Get("/{id}/history", d.Orders.History)
				r.Put("/{id}/location", d.Orders.Location)
			})

			// reads on /dishes are public and registered above
			r.With(middleware.RequirePermission(permissions.CanEditDishes)).Post("/dishes", d.Dishes.Create)
			r.With(middleware.RequirePermission(permissions.CanEditDishes)).Put("/dishes/{id}", d.Dishes.Update)
			r.With(middleware.RequirePermission(permissions.CanDeleteDishes)).Delete("/dishes/{id}", d.Dishes.Delete)

			r.Get("/deliveries/completed", d.Orders.CompletedDeliveries)
			r.Get("/deliveries/earnings", d.Orders.Earnings)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(permissions.CanManageMessages))
				r.Get("/conversations", d.Messaging.Conversations)
				r.Get("/conversations/{id}/messages", d.Messaging.Messages)
				r.Post("/messages/send", d.Messaging.Send)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Write(w, api.CodeNotFound, "route not found")
	})

	return r
}

func healthz(check HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				api.Write(w, api.CodeUnavailable, "database unreachable")
				return
			}
		}
		api.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
