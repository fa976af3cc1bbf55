package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/hagal/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/vaults", h.ListVaults)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{vault}/{fname}", h.GetNote)
	r.Get("/notes/{vault}/{fname}/backlinks", h.Backlinks)

	// Graph.
	r.Get("/graph", h.Graph)
	r.Get("/links/broken", h.BrokenLinks)

	// Doctor.
	r.Post("/doctor", h.RunDoctor)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
