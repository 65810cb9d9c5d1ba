// Package provider defines the contract between upstream sports-data clients
// and the feed adapter. Providers normalize their payloads into game types;
// the feed never sees provider JSON.
//
// Adding a new provider means implementing Source. The engine never changes.
package provider

import (
	"context"

	"github.com/albapepper/scoracle-games/internal/game"
)

// Source is a raw upstream. Errors are returned as-is; the feed adapter
// classifies them.
type Source interface {
	// RoundFixtures returns every fixture of a round in any state.
	RoundFixtures(ctx context.Context, roundID int64) ([]game.Fixture, error)

	// SeasonRounds returns a season's rounds. Order is not guaranteed.
	SeasonRounds(ctx context.Context, seasonID int64) ([]game.Round, error)

	// SeasonTeams returns the teams taking part in a season.
	SeasonTeams(ctx context.Context, seasonID int64) ([]game.Team, error)
}
