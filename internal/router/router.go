package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/packline/api/internal/config"
	"github.com/packline/api/internal/database"
	"github.com/packline/api/internal/enum"
	"github.com/packline/api/internal/handler"
	mw "github.com/packline/api/internal/middleware"
	"github.com/packline/api/internal/service"
	"github.com/packline/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // dashboard dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	importService := service.NewImportService(pool, func(tx pgx.Tx) service.ImportStore {
		return queries.WithTx(tx)
	})
	orderService := service.NewOrderService(queries)
	fulfillmentService := service.NewFulfillmentService(queries, hub)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		orderHandler := handler.NewOrderHandler(importService, orderService, fulfillmentService)
		itemHandler := handler.NewItemHandler(fulfillmentService)

		r.Route("/orders", func(r chi.Router) {
			// Importing quotes and closing orders is an admin action; any
			// authenticated role can view and work items.
			r.With(mw.RequireRole(enum.UserRoleAdmin)).Post("/", orderHandler.Import)
			r.Get("/", orderHandler.List)
			r.Get("/{id}", orderHandler.Get)
			r.With(mw.RequireRole(enum.UserRoleAdmin)).Post("/{id}/finalize", orderHandler.Finalize)
			r.With(mw.RequireRole(enum.UserRoleAdmin)).Delete("/{id}", orderHandler.Cancel)

			r.Route("/{id}/items", itemHandler.RegisterRoutes)
		})
	})

	return r
}
