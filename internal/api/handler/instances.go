package handler

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/albapepper/scoracle-games/internal/api/respond"
	"github.com/albapepper/scoracle-games/internal/cache"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/settle"
)

// CreateInstanceRequest is the body of POST /instances.
type CreateInstanceRequest struct {
	Name          string     `json:"name"`
	GameType      string     `json:"game_type"` // slug or display name ("Race to 33")
	SeasonID      int64      `json:"season_id"`
	EndRound      *int       `json:"end_round,omitempty"`
	EntryFee      int64      `json:"entry_fee"`
	EntryDeadline *time.Time `json:"entry_deadline,omitempty"`
}

// PassResponse is the JSON view of a settlement pass.
type PassResponse struct {
	InstanceID        string   `json:"game_instance_id"`
	Status            string   `json:"status"`
	Round             int      `json:"round"`
	NextRound         int      `json:"next_round,omitempty"`
	EntriesConsidered int      `json:"entries_considered"`
	EntriesSkipped    int      `json:"entries_skipped"`
	EntriesFailed     int      `json:"entries_failed"`
	FixturesApplied   int      `json:"fixtures_applied"`
	Assigned          int      `json:"assigned"`
	Eliminated        int      `json:"eliminated"`
	Won               int      `json:"won"`
	Lost              int      `json:"lost"`
	EventsEmitted     int      `json:"events_emitted"`
	SinkError         string   `json:"sink_error,omitempty"`
	LeaseError        string   `json:"lease_error,omitempty"`
	Errors            []string `json:"errors,omitempty"`
	DurationMS        int64    `json:"duration_ms"`
}

func newPassResponse(r settle.PassResult) PassResponse {
	out := PassResponse{
		InstanceID:        r.InstanceID,
		Status:            string(r.Status),
		Round:             r.Round,
		NextRound:         r.NextRound,
		EntriesConsidered: r.EntriesConsidered,
		EntriesSkipped:    r.EntriesSkipped,
		EntriesFailed:     r.EntriesFailed,
		FixturesApplied:   r.FixturesApplied,
		Assigned:          r.Assigned,
		Eliminated:        r.Eliminated,
		Won:               r.Won,
		Lost:              r.Lost,
		EventsEmitted:     r.EventsEmitted,
		SinkError:         r.SinkError,
		LeaseError:        r.LeaseError,
		DurationMS:        r.Duration.Milliseconds(),
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, e.Error())
	}
	return out
}

// ListInstances lists game instances, optionally filtered by status.
// @Summary List game instances
// @Tags instances
// @Produce json
// @Param status query string false "Lifecycle status" Enums(OPEN, ACTIVE, COMPLETED, CANCELLED)
// @Success 200 {array} game.Instance
// @Failure 400 {object} respond.ErrorResponse
// @Router /instances [get]
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	status := game.InstanceStatus(strings.ToUpper(r.URL.Query().Get("status")))
	switch status {
	case "", game.InstanceOpen, game.InstanceActive, game.InstanceCompleted, game.InstanceCancelled:
	default:
		respond.WriteError(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown status "+string(status))
		return
	}
	list, err := h.store.ListInstances(r.Context(), status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []game.Instance{}
	}
	respond.WriteJSONObject(w, http.StatusOK, list)
}

// CreateInstance opens a new game instance for enrolment.
// @Summary Create a game instance
// @Tags instances
// @Accept json
// @Produce json
// @Param body body CreateInstanceRequest true "Instance definition"
// @Success 201 {object} game.Instance
// @Failure 400 {object} respond.ErrorResponse
// @Failure 422 {object} respond.ErrorResponse
// @Router /instances [post]
func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	var req CreateInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON", err.Error())
		return
	}
	if req.SeasonID <= 0 {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_SEASON", "season_id is required")
		return
	}
	slug := game.NormalizeSlug(req.GameType)
	if !slices.Contains(h.gameTypes, slug) {
		respond.WriteError(w, http.StatusUnprocessableEntity, "UNKNOWN_GAME_TYPE", "Unknown game type "+req.GameType)
		return
	}

	in := &game.Instance{
		ID:            uuid.NewString(),
		Name:          req.Name,
		GameTypeSlug:  slug,
		Status:        game.InstanceOpen,
		SeasonID:      req.SeasonID,
		EndRound:      req.EndRound,
		EntryFee:      req.EntryFee,
		EntryDeadline: req.EntryDeadline,
	}
	if err := h.store.CreateInstance(r.Context(), in); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.logger.Info("Game instance created", "instance", in.ID, "game_type", slug, "season", in.SeasonID)
	respond.WriteJSONObject(w, http.StatusCreated, in)
}

// GetInstance returns one game instance.
// @Summary Get a game instance
// @Tags instances
// @Produce json
// @Param id path string true "Game instance ID"
// @Success 200 {object} game.Instance
// @Success 304 "Not modified"
// @Failure 404 {object} respond.ErrorResponse
// @Router /instances/{id} [get]
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serveCached(w, r, instanceCacheKey(id, "detail"), cache.TTLInstance, func() (any, error) {
		return h.store.GetInstance(r.Context(), id)
	})
}

// SettleInstance runs a settlement pass for one instance now.
// @Summary Settle a game instance
// @Description Applies finished fixtures of the current round and closes the round when nothing is pending. Safe to repeat.
// @Tags settlement
// @Produce json
// @Param id path string true "Game instance ID"
// @Success 200 {object} PassResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /instances/{id}/settle [post]
func (h *Handler) SettleInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.settler.Settle(r.Context(), id)
	// Anything committed before a failure is visible now.
	if res.FixturesApplied > 0 || res.RoundClosed() || res.Status == settle.StatusCancelled {
		h.invalidate(id)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.logger.Info("Settlement pass finished", "summary", res.Summary())
	respond.WriteJSONObject(w, http.StatusOK, newPassResponse(res))
}

// ActivateInstance starts an OPEN instance at the season's first open round.
// @Summary Activate a game instance
// @Tags instances
// @Produce json
// @Param id path string true "Game instance ID"
// @Success 200 {object} game.Instance
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /instances/{id}/activate [post]
func (h *Handler) ActivateInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := h.lifecycle.Activate(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidate(id)
	h.logger.Info("Game instance activated", "instance", id, "round", in.CurrentRound)
	respond.WriteJSONObject(w, http.StatusOK, in)
}

// CancelInstance cancels a non-terminal instance. In-flight passes stop
// before their next entry write.
// @Summary Cancel a game instance
// @Tags instances
// @Produce json
// @Param id path string true "Game instance ID"
// @Success 200 {object} game.Instance
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /instances/{id}/cancel [post]
func (h *Handler) CancelInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, err := h.lifecycle.Cancel(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidate(id)
	h.logger.Info("Game instance cancelled", "instance", id)
	respond.WriteJSONObject(w, http.StatusOK, in)
}
