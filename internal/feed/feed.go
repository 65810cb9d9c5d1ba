// Package feed is the engine's view of the fixture provider. It bounds every
// upstream call with a timeout, classifies failures as
// game.ErrFeedUnavailable, and caches the slow-moving season calendar.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/albapepper/scoracle-games/internal/cache"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/provider"
)

// DefaultTimeout bounds one provider call when none is configured.
const DefaultTimeout = 15 * time.Second

// Feed adapts a provider.Source for the engine.
type Feed struct {
	source  provider.Source
	cache   *cache.Cache
	timeout time.Duration
}

// New creates a feed. A nil cache disables round caching.
func New(source provider.Source, c *cache.Cache, timeout time.Duration) *Feed {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if c == nil {
		c = cache.New(false)
	}
	return &Feed{source: source, cache: c, timeout: timeout}
}

// FetchRoundFixtures returns every fixture of a round in any state, ordered
// by kickoff.
func (f *Feed) FetchRoundFixtures(ctx context.Context, roundID int64) ([]game.Fixture, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	fixtures, err := f.source.RoundFixtures(ctx, roundID)
	if err != nil {
		return nil, unavailable("round fixtures", roundID, err)
	}
	fixtures = slices.Clone(fixtures)
	sortByKickoff(fixtures)
	return fixtures, nil
}

// FetchFinishedFixtures returns only the FINISHED fixtures of a round.
func (f *Feed) FetchFinishedFixtures(ctx context.Context, roundID int64) ([]game.Fixture, error) {
	all, err := f.FetchRoundFixtures(ctx, roundID)
	if err != nil {
		return nil, err
	}
	finished := make([]game.Fixture, 0, len(all))
	for _, fx := range all {
		if fx.State == game.FixtureFinished {
			finished = append(finished, fx)
		}
	}
	return finished, nil
}

// FetchRounds returns a season's rounds sorted by ordinal.
func (f *Feed) FetchRounds(ctx context.Context, seasonID int64) ([]game.Round, error) {
	key := roundsKey(seasonID)
	if data, _, ok := f.cache.Get(key); ok {
		var rounds []game.Round
		if err := json.Unmarshal(data, &rounds); err == nil {
			return rounds, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	rounds, err := f.source.SeasonRounds(ctx, seasonID)
	if err != nil {
		return nil, unavailable("season rounds", seasonID, err)
	}
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].Ordinal < rounds[j].Ordinal })

	if data, err := json.Marshal(rounds); err == nil {
		f.cache.Set(key, data, cache.TTLRounds)
	}
	return rounds, nil
}

// FetchTeams returns the teams of a season. Not cached: callers sync them
// into the store.
func (f *Feed) FetchTeams(ctx context.Context, seasonID int64) ([]game.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	teams, err := f.source.SeasonTeams(ctx, seasonID)
	if err != nil {
		return nil, unavailable("season teams", seasonID, err)
	}
	return teams, nil
}

// InvalidateRounds drops the cached calendar of a season.
func (f *Feed) InvalidateRounds(seasonID int64) {
	f.cache.InvalidatePrefix(roundsKey(seasonID))
}

func unavailable(what string, id int64, err error) error {
	return fmt.Errorf("%w: %s %d: %w", game.ErrFeedUnavailable, what, id, err)
}

func sortByKickoff(fixtures []game.Fixture) {
	sort.SliceStable(fixtures, func(i, j int) bool {
		a, b := fixtures[i], fixtures[j]
		if !a.KickoffAt.Equal(b.KickoffAt) {
			return a.KickoffAt.Before(b.KickoffAt)
		}
		return a.ExternalID < b.ExternalID
	})
}

func roundsKey(seasonID int64) string {
	return "rounds:" + strconv.FormatInt(seasonID, 10) + "/"
}
