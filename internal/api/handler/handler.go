// Package handler provides the HTTP handlers of the settlement API.
// Reads go through the store; standings responses are cached with ETags and
// invalidated whenever a pass or an admin action touches the instance.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/albapepper/scoracle-games/internal/api/respond"
	"github.com/albapepper/scoracle-games/internal/assign"
	"github.com/albapepper/scoracle-games/internal/cache"
	"github.com/albapepper/scoracle-games/internal/config"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/notify"
	"github.com/albapepper/scoracle-games/internal/settle"
	"github.com/albapepper/scoracle-games/internal/store"
)

// --------------------------------------------------------------------------
// Dependencies
// --------------------------------------------------------------------------

// Store is the read and create surface the handlers use.
type Store interface {
	GetInstance(ctx context.Context, id string) (*game.Instance, error)
	ListInstances(ctx context.Context, status game.InstanceStatus) ([]game.Instance, error)
	CreateInstance(ctx context.Context, in *game.Instance) error
	ListEntries(ctx context.Context, instanceID string) ([]game.Entry, error)
	Standings(ctx context.Context, instanceID string) ([]store.Standing, error)
}

// Settler runs one settlement pass.
type Settler interface {
	Settle(ctx context.Context, instanceID string) (settle.PassResult, error)
}

// Lifecycle performs admin transitions.
type Lifecycle interface {
	Activate(ctx context.Context, id string) (*game.Instance, error)
	Cancel(ctx context.Context, id string) (*game.Instance, error)
}

// Enroller creates entries with their first assignment.
type Enroller interface {
	Enroll(ctx context.Context, instanceID, userID string) (*game.Entry, assign.Assignment, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds everything the handlers talk to. Hub and DB may be nil.
type Deps struct {
	Store     Store
	Settler   Settler
	Lifecycle Lifecycle
	Enroller  Enroller
	GameTypes []string
	DB        Pinger
	Hub       *notify.Hub
	Cache     *cache.Cache
	Logger    *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store     Store
	settler   Settler
	lifecycle Lifecycle
	enroller  Enroller
	gameTypes []string
	db        Pinger
	hub       *notify.Hub
	cache     *cache.Cache
	cfg       *config.Config
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// New creates a Handler with shared dependencies.
func New(deps Deps, cfg *config.Config) *Handler {
	if deps.Cache == nil {
		deps.Cache = cache.New(false)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{
		store:     deps.Store,
		settler:   deps.Settler,
		lifecycle: deps.Lifecycle,
		enroller:  deps.Enroller,
		gameTypes: deps.GameTypes,
		db:        deps.DB,
		hub:       deps.Hub,
		cache:     deps.Cache,
		cfg:       cfg,
		logger:    deps.Logger,
		upgrader:  notify.Upgrader(cfg.CORSAllowOrigins),
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the registered game types.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":       "Scoracle Games Settlement API",
		"version":    "1.0.0",
		"status":     "running",
		"docs":       "/docs",
		"game_types": h.gameTypes,
	})
}

// --------------------------------------------------------------------------
// Health
// --------------------------------------------------------------------------

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.hub != nil {
		body["websocket_connections"] = h.hub.Connections()
	}
	respond.WriteJSONObject(w, http.StatusOK, body)
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "not configured",
		})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ServeWs upgrades to a websocket that streams settlement events for the
// instances the client subscribes to.
// @Summary Live settlement events
// @Description Websocket. Send {"type":"subscribe","game_instance_id":"..."} to receive that instance's events.
// @Tags events
// @Router /ws [get]
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "EVENTS_DISABLED", "Live events are not enabled")
		return
	}
	notify.ServeWs(h.hub, h.upgrader, h.logger, w, r)
}
