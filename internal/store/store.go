// Package store defines the persistence contract of the settlement engine.
// Implementations live in the postgres (production) and memory (tests,
// single-process runs) subpackages.
package store

import (
	"context"
	"sort"

	"github.com/albapepper/scoracle-games/internal/game"
)

// Store is the full persistence surface used by the engine and its binaries.
type Store interface {
	// Instances
	GetInstance(ctx context.Context, id string) (*game.Instance, error)
	ListInstances(ctx context.Context, status game.InstanceStatus) ([]game.Instance, error)
	CreateInstance(ctx context.Context, in *game.Instance) error

	// UpdateInstance runs mutate against the locked row and persists the
	// result in one transaction. A mutate error rolls back.
	UpdateInstance(ctx context.Context, id string, mutate func(*game.Instance) error) (*game.Instance, error)

	// Entries
	GetEntry(ctx context.Context, id string) (*game.Entry, error)
	ListEntries(ctx context.Context, instanceID string) ([]game.Entry, error)

	// CreateEntry fails with game.ErrDuplicateEntry when the user already
	// holds an entry for the instance.
	CreateEntry(ctx context.Context, e *game.Entry) error

	// UpdateEntry persists one entry in its own transaction after checking
	// that the owning instance was not cancelled (game.ErrInstanceCancelled).
	UpdateEntry(ctx context.Context, e game.Entry) error

	// CloseRound atomically re-marks entries and applies the instance
	// transition described by c.
	CloseRound(ctx context.Context, instanceID string, c RoundClosure) (*game.Instance, error)

	// Reference data
	ListTeams(ctx context.Context, seasonID int64) ([]game.Team, error)
	UpsertTeams(ctx context.Context, teams []game.Team) (int, error)
	UpsertRounds(ctx context.Context, rounds []game.Round) (int, error)

	// Read models
	Standings(ctx context.Context, instanceID string) ([]Standing, error)
}

// RoundClosure is the persisted form of a round verdict.
type RoundClosure struct {
	Won  []string
	Lost []string

	// Transition mutates the locked instance (advance or complete). It runs
	// inside the transaction; an error aborts the whole closure.
	Transition func(*game.Instance) error
}

// Standing is one row of an instance leaderboard.
type Standing struct {
	Rank            int              `json:"rank"`
	EntryID         string           `json:"entry_id"`
	UserID          string           `json:"user_id"`
	Status          game.EntryStatus `json:"status"`
	Score           int              `json:"score"`
	EliminatedRound *int             `json:"eliminated_round,omitempty"`
	CurrentTeamID   *int64           `json:"current_team_id,omitempty"`
}

// RankStandings orders entries for display: winners, then live entries, then
// knocked-out ones; within a group by score and how long they lasted.
func RankStandings(entries []game.Entry) []Standing {
	sorted := make([]game.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if ga, gb := statusGroup(a.Status), statusGroup(b.Status); ga != gb {
			return ga < gb
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ra, rb := lastedUntil(a), lastedUntil(b); ra != rb {
			return ra > rb
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	out := make([]Standing, len(sorted))
	for i, e := range sorted {
		s := Standing{
			Rank:            i + 1,
			EntryID:         e.ID,
			UserID:          e.UserID,
			Status:          e.Status,
			Score:           e.Score,
			EliminatedRound: e.EliminatedRound,
		}
		if t, ok := e.CurrentTeam(); ok {
			s.CurrentTeamID = &t
		}
		// Ties share a rank.
		if i > 0 && tied(sorted[i-1], e) {
			s.Rank = out[i-1].Rank
		}
		out[i] = s
	}
	return out
}

func statusGroup(s game.EntryStatus) int {
	switch s {
	case game.EntryWon:
		return 0
	case game.EntryActive:
		return 1
	default:
		return 2
	}
}

func lastedUntil(e game.Entry) int {
	if e.EliminatedRound == nil {
		return 1 << 30
	}
	return *e.EliminatedRound
}

func tied(a, b game.Entry) bool {
	return statusGroup(a.Status) == statusGroup(b.Status) && a.Score == b.Score && lastedUntil(a) == lastedUntil(b)
}
