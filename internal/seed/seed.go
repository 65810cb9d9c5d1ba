package seed

import (
	"context"
	"log/slog"

	"github.com/albapepper/scoracle-games/internal/game"
)

// Source is the feed side of a sync.
type Source interface {
	FetchTeams(ctx context.Context, seasonID int64) ([]game.Team, error)
	FetchRounds(ctx context.Context, seasonID int64) ([]game.Round, error)
}

// Store is the persistence side of a sync.
type Store interface {
	ListTeams(ctx context.Context, seasonID int64) ([]game.Team, error)
	UpsertTeams(ctx context.Context, teams []game.Team) (int, error)
	UpsertRounds(ctx context.Context, rounds []game.Round) (int, error)
}

// Teams syncs a season's teams. The provider knows nothing about
// eliminations, so a team already marked eliminated stays eliminated.
func Teams(ctx context.Context, src Source, st Store, seasonID int64, logger *slog.Logger) Result {
	var result Result

	logger.Info("Seeding teams", "season_id", seasonID)
	teams, err := src.FetchTeams(ctx, seasonID)
	if err != nil {
		result.fail("fetch teams", err)
		return result
	}
	result.TeamsFetched = len(teams)

	existing, err := st.ListTeams(ctx, seasonID)
	if err != nil {
		result.fail("list stored teams", err)
		return result
	}
	eliminated := make(map[int64]bool, len(existing))
	for _, t := range existing {
		eliminated[t.ID] = t.Eliminated
	}
	for i := range teams {
		teams[i].SeasonID = seasonID
		teams[i].Eliminated = teams[i].Eliminated || eliminated[teams[i].ID]
	}

	n, err := st.UpsertTeams(ctx, teams)
	result.TeamsUpserted = n
	if err != nil {
		result.fail("upsert teams", err)
	}
	logger.Info("Teams done", "season_id", seasonID, "count", result.TeamsUpserted)
	return result
}

// Rounds syncs a season's round calendar.
func Rounds(ctx context.Context, src Source, st Store, seasonID int64, logger *slog.Logger) Result {
	var result Result

	logger.Info("Seeding rounds", "season_id", seasonID)
	rounds, err := src.FetchRounds(ctx, seasonID)
	if err != nil {
		result.fail("fetch rounds", err)
		return result
	}
	result.RoundsFetched = len(rounds)

	n, err := st.UpsertRounds(ctx, rounds)
	result.RoundsUpserted = n
	if err != nil {
		result.fail("upsert rounds", err)
	}
	logger.Info("Rounds done", "season_id", seasonID, "count", result.RoundsUpserted)
	return result
}

// Season syncs teams then rounds.
func Season(ctx context.Context, src Source, st Store, seasonID int64, logger *slog.Logger) Result {
	result := Teams(ctx, src, st, seasonID, logger)
	result.Add(Rounds(ctx, src, st, seasonID, logger))
	logger.Info("Season seed complete", "season_id", seasonID, "summary", result.Summary())
	return result
}
