package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/lorrc/complaint-desk-bff/internal/adapters/primary/http/middleware"
	"github.com/lorrc/complaint-desk-bff/internal/auth"
	"github.com/lorrc/complaint-desk-bff/internal/config"
)

// RouterConfig gathers the handlers and middleware wired by NewRouter.
// Nil limiters disable rate limiting; a nil WebSocket handler disables /ws.
type RouterConfig struct {
	Logger       *slog.Logger
	TokenManager *auth.TokenManager
	CORS         config.CORSConfig

	GeneralLimiter  *mw.RateLimiter
	UpstreamLimiter *mw.RateLimiter

	Health       *HealthHandler
	State        *StateHandler
	Plainte      *PlainteHandler
	Admin        *AdminHandler
	UI           *UIHandler
	Notification *NotificationHandler
	WebSocket    *WebSocketHandler
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	if cfg.GeneralLimiter != nil {
		r.Use(cfg.GeneralLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	cfg.Health.RegisterRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		// The browser cannot set headers on a WebSocket upgrade.
		if cfg.WebSocket != nil {
			r.With(mw.JWTMiddleware(cfg.TokenManager, true)).Get("/ws", cfg.WebSocket.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(cfg.TokenManager, false))

			// Local state only, never calls the upstream API
			r.Route("/ui", cfg.UI.RegisterRoutes)
			r.Route("/notifications", cfg.Notification.RegisterRoutes)

			r.Group(func(r chi.Router) {
				if cfg.UpstreamLimiter != nil {
					r.Use(cfg.UpstreamLimiter.Middleware)
				}
				cfg.State.RegisterRoutes(r)
				cfg.Admin.RegisterRoutes(r)
				r.Route("/plaintes", cfg.Plainte.RegisterRoutes)
			})
		})
	})

	return r
}
