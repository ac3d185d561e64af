package api

import (
	"net/http"
	"time"
	"vendor-map-service/internal/adapters/mapview"
	"vendor-map-service/internal/api/handlers"
	"vendor-map-service/internal/ports"
	"vendor-map-service/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
)

// Options carries the settings the handlers need besides their collaborators.
type Options struct {
	Categories     []string
	DefaultRangeKm float64
	LocateTimeout  time.Duration
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete providers).
func NewRouter(
	session *services.MapSession,
	view *mapview.MemoryView,
	provider ports.GeolocationProvider,
	opts Options,
	logger log.Logger,
) http.Handler {
	catalog := &handlers.CatalogHandler{
		Categories:     opts.Categories,
		DefaultRangeKm: opts.DefaultRangeKm,
		Logger:         logger,
	}
	sessionHandler := &handlers.SessionHandler{
		Session:        session,
		View:           view,
		Provider:       provider,
		Categories:     opts.Categories,
		DefaultRangeKm: opts.DefaultRangeKm,
		LocateTimeout:  opts.LocateTimeout,
		Logger:         logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health(logger))
	r.Get("/categories", catalog.List)
	r.Post("/bargain", catalog.Bargain)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", sessionHandler.Get)
		r.Post("/select", sessionHandler.Select)
		r.Post("/hit", sessionHandler.Hit)
		r.Post("/drag", sessionHandler.Drag)
		r.Delete("/markers", sessionHandler.Clear)
		r.Get("/markers.geojson", sessionHandler.Markers)
		r.Post("/markers/{id}/click", sessionHandler.Click)
	})

	return r
}
