package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is the absolute vault directory that URL paths are relative to.
func NewRouter(svc *noteservice.Service, vaults *vault.Manager, vaultRoot string, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, vaults, vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/vault", h.Vault)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)

	// Rendering.
	r.Get("/preview/*", h.Preview)
	r.Post("/render/*", h.Render)
	r.Get("/pdf/*", h.ServePDF)
	r.Get("/renders", h.Renders)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
