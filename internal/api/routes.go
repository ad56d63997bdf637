package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/varsilias/webhook-chat/internal/middleware"
)

func RegisterRoutes(mux chi.Router, h *Handlers, allowedOrigins []string) {
	mux.Get("/healthz", h.Health)
	mux.Get("/version", h.Version)

	mux.Route("/api", func(api chi.Router) {
		api.Use(middleware.CORS(allowedOrigins))
		api.Post("/chat", h.Chat)
		api.Get("/history", h.GetHistory)
		api.Delete("/history", h.ClearHistory)
		if h.Admin != nil {
			api.Post("/selftest", h.Admin.SelfTest)
		}
	})
}
