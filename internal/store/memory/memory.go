// Package memory is an in-process store.Store used by tests and by the
// CLI's dry-run mode. All methods are safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/store"
)

// Store keeps everything in maps guarded by one mutex, which makes every
// method behave like a serializable transaction.
type Store struct {
	mu        sync.Mutex
	instances map[string]game.Instance
	entries   map[string]game.Entry
	teams     map[int64]game.Team
	rounds    map[int64]game.Round
	now       func() time.Time

	// EntryWrites counts successful UpdateEntry calls.
	EntryWrites int
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		instances: make(map[string]game.Instance),
		entries:   make(map[string]game.Entry),
		teams:     make(map[int64]game.Team),
		rounds:    make(map[int64]game.Round),
		now:       time.Now,
	}
}

// --------------------------------------------------------------------------
// Instances
// --------------------------------------------------------------------------

func (s *Store) GetInstance(_ context.Context, id string) (*game.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, game.ErrInstanceNotFound)
	}
	return cloneInstance(in), nil
}

func (s *Store) ListInstances(_ context.Context, status game.InstanceStatus) ([]game.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []game.Instance
	for _, in := range s.instances {
		if status == "" || in.Status == status {
			out = append(out, *cloneInstance(in))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateInstance(_ context.Context, in *game.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[in.ID]; ok {
		return fmt.Errorf("instance %s already exists", in.ID)
	}
	now := s.now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now
	s.instances[in.ID] = *cloneInstance(*in)
	return nil
}

func (s *Store) UpdateInstance(_ context.Context, id string, mutate func(*game.Instance) error) (*game.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, game.ErrInstanceNotFound)
	}
	next := cloneInstance(cur)
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.instances[id] = *next
	return cloneInstance(*next), nil
}

// --------------------------------------------------------------------------
// Entries
// --------------------------------------------------------------------------

func (s *Store) GetEntry(_ context.Context, id string) (*game.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, game.ErrEntryNotFound)
	}
	c := e.Clone()
	return &c, nil
}

func (s *Store) ListEntries(_ context.Context, instanceID string) ([]game.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []game.Entry
	for _, e := range s.entries {
		if e.InstanceID == instanceID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateEntry(_ context.Context, e *game.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[e.InstanceID]; !ok {
		return fmt.Errorf("instance %s: %w", e.InstanceID, game.ErrInstanceNotFound)
	}
	for _, existing := range s.entries {
		if existing.InstanceID == e.InstanceID && existing.UserID == e.UserID {
			return fmt.Errorf("user %s instance %s: %w", e.UserID, e.InstanceID, game.ErrDuplicateEntry)
		}
	}
	now := s.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.entries[e.ID] = e.Clone()
	return nil
}

func (s *Store) UpdateEntry(_ context.Context, e game.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.instances[e.InstanceID]
	if !ok {
		return fmt.Errorf("instance %s: %w", e.InstanceID, game.ErrInstanceNotFound)
	}
	if in.Status == game.InstanceCancelled {
		return fmt.Errorf("instance %s: %w", e.InstanceID, game.ErrInstanceCancelled)
	}
	if _, ok := s.entries[e.ID]; !ok {
		return fmt.Errorf("entry %s: %w", e.ID, game.ErrEntryNotFound)
	}
	e.UpdatedAt = s.now()
	s.entries[e.ID] = e.Clone()
	s.EntryWrites++
	return nil
}

func (s *Store) CloseRound(_ context.Context, instanceID string, c store.RoundClosure) (*game.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", instanceID, game.ErrInstanceNotFound)
	}
	if cur.Status == game.InstanceCancelled {
		return nil, fmt.Errorf("instance %s: %w", instanceID, game.ErrInstanceCancelled)
	}

	next := cloneInstance(cur)
	if c.Transition != nil {
		if err := c.Transition(next); err != nil {
			return nil, err
		}
	}

	// Validate every id before writing anything.
	for _, id := range slices.Concat(c.Won, c.Lost) {
		e, ok := s.entries[id]
		if !ok || e.InstanceID != instanceID {
			return nil, fmt.Errorf("entry %s: %w", id, game.ErrEntryNotFound)
		}
	}

	now := s.now()
	mark := func(ids []string, status game.EntryStatus) {
		for _, id := range ids {
			e := s.entries[id]
			e.Status = status
			e.UpdatedAt = now
			s.entries[id] = e
		}
	}
	mark(c.Won, game.EntryWon)
	mark(c.Lost, game.EntryLost)

	next.UpdatedAt = now
	s.instances[instanceID] = *next
	return cloneInstance(*next), nil
}

// --------------------------------------------------------------------------
// Reference data
// --------------------------------------------------------------------------

func (s *Store) ListTeams(_ context.Context, seasonID int64) ([]game.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []game.Team
	for _, t := range s.teams {
		if t.SeasonID == seasonID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertTeams(_ context.Context, teams []game.Team) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range teams {
		s.teams[t.ID] = t
	}
	return len(teams), nil
}

func (s *Store) UpsertRounds(_ context.Context, rounds []game.Round) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rounds {
		s.rounds[r.ExternalID] = r
	}
	return len(rounds), nil
}

// Rounds returns the stored rounds of a season ordered by ordinal.
func (s *Store) Rounds(seasonID int64) []game.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []game.Round
	for _, r := range s.rounds {
		if r.SeasonID == seasonID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

func (s *Store) Standings(ctx context.Context, instanceID string) ([]store.Standing, error) {
	entries, err := s.ListEntries(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return store.RankStandings(entries), nil
}

func cloneInstance(in game.Instance) *game.Instance {
	if in.CurrentRound != nil {
		r := *in.CurrentRound
		in.CurrentRound = &r
	}
	if in.EndRound != nil {
		r := *in.EndRound
		in.EndRound = &r
	}
	if in.EntryDeadline != nil {
		d := *in.EntryDeadline
		in.EntryDeadline = &d
	}
	return &in
}
