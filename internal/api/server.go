// Package api wires the settlement HTTP surface: middleware, routes and the
// cache hook that keeps instance responses fresh as events are delivered.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/albapepper/scoracle-games/internal/api/handler"
	"github.com/albapepper/scoracle-games/internal/cache"
	"github.com/albapepper/scoracle-games/internal/config"
	"github.com/albapepper/scoracle-games/internal/notify"
)

// NewRouter creates the chi router with all middleware and routes.
func NewRouter(deps handler.Deps, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5))

	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag", "Retry-After"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := handler.New(deps, cfg)

	// --- Routes ---
	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Get("/ws", h.ServeWs)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/instances", h.ListInstances)
		r.Post("/instances", h.CreateInstance)

		r.Route("/instances/{id}", func(r chi.Router) {
			r.Get("/", h.GetInstance)
			r.Get("/entries", h.ListEntries)
			r.Post("/entries", h.Enroll)
			r.Get("/standings", h.GetStandings)

			r.Post("/settle", h.SettleInstance)
			r.Post("/activate", h.ActivateInstance)
			r.Post("/cancel", h.CancelInstance)
		})
	})

	return r
}

// --------------------------------------------------------------------------
// Cache invalidation
// --------------------------------------------------------------------------

// CacheInvalidator is a notify.Sink that drops cached responses for every
// instance an event mentions. Passes run by the worker reach the API this
// way, through the dispatcher.
type CacheInvalidator struct {
	Cache *cache.Cache
}

var _ notify.Sink = CacheInvalidator{}

func (ci CacheInvalidator) Publish(_ context.Context, events []notify.Event) error {
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		if seen[e.InstanceID] {
			continue
		}
		seen[e.InstanceID] = true
		ci.Cache.InvalidatePrefix(handler.InstanceCachePrefix(e.InstanceID))
	}
	return nil
}
