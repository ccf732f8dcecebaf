package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finalquest/itinera/internal/auth"
	"github.com/finalquest/itinera/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// Login, health, and uploads (referenced from plain <img> tags) stay outside
// the auth group; everything else requires a Bearer token.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authSvc *auth.Service, photos *storage.Photos, sseHandler http.Handler) chi.Router {
	uh := NewUploadHandler(photos)

	r := chi.NewRouter()

	// Public surface.
	r.Post("/auth/login", h.Login)
	r.Get("/uploads/thumb/{filename}", uh.ServeThumb)
	r.Get("/uploads/{filename}", uh.ServePhoto)

	// Authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)

		r.Get("/auth/me", h.Me)

		// Itineraries.
		r.Get("/kmls", h.ListItineraries)
		r.Get("/kml/{name}", h.GetItinerary)
		r.Get("/kml/{name}/view", h.ViewItinerary)

		// Findings.
		r.Get("/findings", h.ListFindings)
		r.Post("/findings", h.CreateFinding)
		r.Get("/findings/search", h.SearchFindings)
		r.Delete("/findings/{id}", h.DeleteFinding)
		r.Post("/findings/{id}/enrich", h.EnrichFinding)

		// Enrichment collaborators.
		r.Get("/lookup-barcode", h.LookupBarcode)
		r.Post("/extract-text", h.ExtractText)

		// User management (admin only except listing).
		r.Get("/users", h.ListUsers)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/users", h.CreateUser)
			r.Delete("/users/{id}", h.DeleteUser)
		})

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
