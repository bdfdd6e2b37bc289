package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recovery)

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/notes", h.CreateNote)
		r.Get("/notes", h.ListNotes)
		r.Get("/stats", h.Stats)
	})

	return r
}
