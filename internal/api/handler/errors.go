package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/albapepper/scoracle-games/internal/api/respond"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/rules"
)

// writeDomainError maps engine errors onto HTTP statuses. Anything it does
// not recognise is logged and reported as a 500 without detail.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case game.IsNotFound(err):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, game.ErrDuplicateEntry):
		respond.WriteError(w, http.StatusConflict, "DUPLICATE_ENTRY", err.Error())
	case errors.Is(err, game.ErrInstanceNotOpen):
		respond.WriteError(w, http.StatusConflict, "INSTANCE_NOT_OPEN", err.Error())
	case errors.Is(err, game.ErrInstanceCancelled):
		respond.WriteError(w, http.StatusConflict, "INSTANCE_CANCELLED", err.Error())
	case errors.Is(err, game.ErrInvalidTransition):
		respond.WriteError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, game.ErrConcurrentSettlement):
		w.Header().Set("Retry-After", "30")
		respond.WriteError(w, http.StatusConflict, "SETTLEMENT_IN_PROGRESS", err.Error())
	case errors.Is(err, game.ErrFeedUnavailable):
		w.Header().Set("Retry-After", "60")
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "FEED_UNAVAILABLE",
			"Fixture provider unavailable, nothing was changed", err.Error())
	case errors.Is(err, game.ErrInsufficientTeamData):
		respond.WriteError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_TEAM_DATA", err.Error())
	case errors.Is(err, rules.ErrUnknownGameType):
		respond.WriteError(w, http.StatusUnprocessableEntity, "UNKNOWN_GAME_TYPE", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respond.WriteError(w, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
	default:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
