package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	hrest "whatsapp-gateway/internal/handler/http"
	wshandler "whatsapp-gateway/internal/handler/ws"
	"whatsapp-gateway/web"
)

// SetupRoutes configures the HTTP routes for the gateway. sendLimit guards
// POST /send-message and may be nil.
func SetupRoutes(
	r chi.Router,
	h *hrest.MessageHandler,
	wsHandler *wshandler.WSHandler,
	allowedOrigins []string,
	sendLimit func(http.Handler) http.Handler,
) chi.Router {
	// ---- Global Middleware ----
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"ngrok-skip-browser-warning",
		},
		ExposedHeaders: []string{
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", web.Index)
	r.Get("/ws", wsHandler.HandlePairing)
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if sendLimit != nil {
			r.Use(sendLimit)
		}
		r.Post("/send-message", h.SendMessage)
	})
	return r
}
