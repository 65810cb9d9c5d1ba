// Package assign decides which real-world teams an entry is tied to. Teams
// are drawn at random from the instance's season, skipping teams knocked out
// of the competition and teams the entry already had.
package assign

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/rules"
)

// Store is the persistence the resolver needs.
type Store interface {
	GetInstance(ctx context.Context, id string) (*game.Instance, error)
	ListEntries(ctx context.Context, instanceID string) ([]game.Entry, error)
	CreateEntry(ctx context.Context, e *game.Entry) error
	UpdateEntry(ctx context.Context, e game.Entry) error
	ListTeams(ctx context.Context, seasonID int64) ([]game.Team, error)
}

// Assignment describes one assignment call. Shortfall > 0 means fewer teams
// were eligible than required; the caller decides how loudly to report it.
type Assignment struct {
	TeamIDs   []int64
	Requested int
	Shortfall int
}

// Resolver assigns teams to entries.
type Resolver struct {
	store    Store
	registry *rules.Registry
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a resolver. A nil src seeds from the runtime's random source;
// tests pass a fixed one (rand.NewPCG(1, 2)) for repeatable draws.
func New(store Store, registry *rules.Registry, src rand.Source) *Resolver {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Resolver{
		store:    store,
		registry: registry,
		now:      time.Now,
		rng:      rand.New(src),
	}
}

// AssignTeams draws teams for a user's existing entry and persists them.
// Elimination games draw one team per call (the next pick); cumulative games
// top the entry up to teams_per_entry.
func (r *Resolver) AssignTeams(ctx context.Context, instanceID, userID string) (Assignment, error) {
	in, err := r.store.GetInstance(ctx, instanceID)
	if err != nil {
		return Assignment{}, err
	}
	entries, err := r.store.ListEntries(ctx, instanceID)
	if err != nil {
		return Assignment{}, fmt.Errorf("list entries: %w", err)
	}
	idx := slices.IndexFunc(entries, func(e game.Entry) bool { return e.UserID == userID })
	if idx < 0 {
		return Assignment{}, fmt.Errorf("user %s instance %s: %w", userID, instanceID, game.ErrEntryNotFound)
	}

	gc, err := r.registry.Config(in.GameTypeSlug)
	if err != nil {
		return Assignment{}, err
	}
	n := 1
	if gc.Kind == rules.KindCumulative {
		n = gc.TeamsPerEntry - len(entries[idx].AssignedTeamIDs)
	}

	_, a, err := r.assign(ctx, in, entries[idx], n)
	return a, err
}

// Fill gives an entry its initial teams if it has none yet. Used when an
// earlier assignment found no eligible team.
func (r *Resolver) Fill(ctx context.Context, in *game.Instance, e game.Entry) (game.Entry, Assignment, error) {
	gc, err := r.registry.Config(in.GameTypeSlug)
	if err != nil {
		return e, Assignment{}, err
	}
	return r.assign(ctx, in, e, initialTeams(gc)-len(e.AssignedTeamIDs))
}

// AssignNextRound appends the pick for the instance's current round to a
// surviving elimination entry.
func (r *Resolver) AssignNextRound(ctx context.Context, in *game.Instance, e game.Entry) (game.Entry, Assignment, error) {
	return r.assign(ctx, in, e, 1)
}

// Enroll creates the entry for a confirmed participant together with its
// first assignment. The entry is created even when no team is eligible; the
// returned error then wraps game.ErrInsufficientTeamData alongside it.
func (r *Resolver) Enroll(ctx context.Context, instanceID, userID string) (*game.Entry, Assignment, error) {
	in, err := r.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, Assignment{}, err
	}
	if in.Status != game.InstanceOpen || (in.EntryDeadline != nil && !r.now().Before(*in.EntryDeadline)) {
		return nil, Assignment{}, fmt.Errorf("instance %s (%s): %w", instanceID, in.Status, game.ErrInstanceNotOpen)
	}
	gc, err := r.registry.Config(in.GameTypeSlug)
	if err != nil {
		return nil, Assignment{}, err
	}

	teams, a, pickErr := r.choose(ctx, in, nil, initialTeams(gc))
	if pickErr != nil && !errors.Is(pickErr, game.ErrInsufficientTeamData) {
		return nil, a, pickErr
	}

	e := &game.Entry{
		ID:              uuid.NewString(),
		UserID:          userID,
		InstanceID:      instanceID,
		Status:          game.EntryActive,
		AssignedTeamIDs: teams,
	}
	if err := r.store.CreateEntry(ctx, e); err != nil {
		return nil, Assignment{}, err
	}
	return e, a, pickErr
}

func (r *Resolver) assign(ctx context.Context, in *game.Instance, e game.Entry, n int) (game.Entry, Assignment, error) {
	if n <= 0 {
		return e, Assignment{}, nil
	}
	teams, a, err := r.choose(ctx, in, e.AssignedTeamIDs, n)
	if err != nil {
		return e, a, err
	}

	updated := e.Clone()
	updated.AssignedTeamIDs = append(updated.AssignedTeamIDs, teams...)
	if in.CurrentRound != nil {
		updated.PickRound = in.CurrentRound.Ordinal
	}
	if err := r.store.UpdateEntry(ctx, updated); err != nil {
		return e, a, fmt.Errorf("persist assignment for entry %s: %w", e.ID, err)
	}
	return updated, a, nil
}

// choose draws up to n distinct eligible teams.
func (r *Resolver) choose(ctx context.Context, in *game.Instance, exclude []int64, n int) ([]int64, Assignment, error) {
	a := Assignment{Requested: n}

	teams, err := r.store.ListTeams(ctx, in.SeasonID)
	if err != nil {
		return nil, a, fmt.Errorf("list teams for season %d: %w", in.SeasonID, err)
	}

	eligible := make([]int64, 0, len(teams))
	for _, t := range teams {
		if !t.Eliminated && !slices.Contains(exclude, t.ID) {
			eligible = append(eligible, t.ID)
		}
	}
	// Deterministic input order keeps seeded draws repeatable.
	slices.Sort(eligible)

	if len(eligible) == 0 {
		a.Shortfall = n
		return nil, a, fmt.Errorf("instance %s season %d: %w", in.ID, in.SeasonID, game.ErrInsufficientTeamData)
	}

	r.mu.Lock()
	r.rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	r.mu.Unlock()

	take := min(n, len(eligible))
	a.TeamIDs = slices.Clone(eligible[:take])
	a.Shortfall = n - take
	return a.TeamIDs, a, nil
}

func initialTeams(gc rules.GameConfig) int {
	if gc.Kind == rules.KindCumulative {
		return gc.TeamsPerEntry
	}
	return 1
}
