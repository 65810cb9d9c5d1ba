package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-games/internal/api/respond"
	"github.com/albapepper/scoracle-games/internal/cache"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/store"
)

// EnrollRequest is the body of POST /instances/{id}/entries. Payment is
// confirmed upstream; this call only records the participant.
type EnrollRequest struct {
	UserID string `json:"user_id"`
}

// EnrollResponse carries the new entry. Warning is set when fewer teams
// than required were available; the entry still exists and is topped up
// by a later settlement pass.
type EnrollResponse struct {
	Entry   *game.Entry `json:"entry"`
	Warning string      `json:"warning,omitempty"`
}

// ListEntries returns every entry of an instance.
// @Summary List entries
// @Tags entries
// @Produce json
// @Param id path string true "Game instance ID"
// @Success 200 {array} game.Entry
// @Failure 404 {object} respond.ErrorResponse
// @Router /instances/{id}/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetInstance(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	entries, err := h.store.ListEntries(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []game.Entry{}
	}
	respond.WriteJSONObject(w, http.StatusOK, entries)
}

// Enroll creates a user's entry and draws its first teams.
// @Summary Enroll a user
// @Tags entries
// @Accept json
// @Produce json
// @Param id path string true "Game instance ID"
// @Param body body EnrollRequest true "Participant"
// @Success 201 {object} EnrollResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /instances/{id}/entries [post]
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON", err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER", "user_id is required")
		return
	}

	e, a, err := h.enroller.Enroll(r.Context(), id, req.UserID)
	if e == nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.invalidate(id)

	resp := EnrollResponse{Entry: e}
	if errors.Is(err, game.ErrInsufficientTeamData) {
		resp.Warning = err.Error()
		h.logger.Warn("Entry enrolled short of teams", "instance", id, "entry", e.ID, "shortfall", a.Shortfall)
	}
	respond.WriteJSONObject(w, http.StatusCreated, resp)
}

// GetStandings returns the ranked leaderboard of an instance.
// @Summary Get standings
// @Description Winners first, then live entries, then knocked-out ones; ties share a rank. Cached with ETag support.
// @Tags entries
// @Produce json
// @Param id path string true "Game instance ID"
// @Success 200 {array} store.Standing
// @Success 304 "Not modified"
// @Failure 404 {object} respond.ErrorResponse
// @Router /instances/{id}/standings [get]
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.serveCached(w, r, instanceCacheKey(id, "standings"), cache.TTLStandings, func() (any, error) {
		if _, err := h.store.GetInstance(r.Context(), id); err != nil {
			return nil, err
		}
		rows, err := h.store.Standings(r.Context(), id)
		if rows == nil {
			rows = []store.Standing{}
		}
		return rows, err
	})
}
