// Package lifecycle owns game instance status transitions. Statuses only move
// forward: OPEN -> ACTIVE -> COMPLETED, with CANCELLED reachable from any
// non-terminal status.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/albapepper/scoracle-games/internal/game"
)

// CanTransition returns nil when from -> to is allowed.
func CanTransition(from, to game.InstanceStatus) error {
	ok := false
	switch to {
	case game.InstanceActive:
		ok = from == game.InstanceOpen
	case game.InstanceCompleted:
		ok = from == game.InstanceActive
	case game.InstanceCancelled:
		ok = from == game.InstanceOpen || from == game.InstanceActive
	}
	if !ok {
		return fmt.Errorf("%s -> %s: %w", from, to, game.ErrInvalidTransition)
	}
	return nil
}

// AdvanceRound moves an ACTIVE instance to a later round.
func AdvanceRound(in *game.Instance, next game.Round) error {
	if in.Status != game.InstanceActive {
		return fmt.Errorf("advance round on %s instance: %w", in.Status, game.ErrInvalidTransition)
	}
	if in.CurrentRound != nil && next.Ordinal <= in.CurrentRound.Ordinal {
		return fmt.Errorf("advance round %d -> %d: %w", in.CurrentRound.Ordinal, next.Ordinal, game.ErrInvalidTransition)
	}
	if !in.WithinEnd(next.Ordinal) {
		return fmt.Errorf("round %d past instance end %d: %w", next.Ordinal, *in.EndRound, game.ErrInvalidTransition)
	}
	ref := next.Ref()
	in.CurrentRound = &ref
	return nil
}

// Complete marks an ACTIVE instance as COMPLETED.
func Complete(in *game.Instance) error {
	if err := CanTransition(in.Status, game.InstanceCompleted); err != nil {
		return err
	}
	in.Status = game.InstanceCompleted
	return nil
}

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// InstanceStore is the persistence the manager needs.
type InstanceStore interface {
	GetInstance(ctx context.Context, id string) (*game.Instance, error)
	ListInstances(ctx context.Context, status game.InstanceStatus) ([]game.Instance, error)
	UpdateInstance(ctx context.Context, id string, mutate func(*game.Instance) error) (*game.Instance, error)
}

// RoundSource lists a season's rounds in ordinal order.
type RoundSource interface {
	FetchRounds(ctx context.Context, seasonID int64) ([]game.Round, error)
}

// Manager performs the administrative transitions.
type Manager struct {
	store  InstanceStore
	rounds RoundSource
}

// NewManager creates a lifecycle manager.
func NewManager(store InstanceStore, rounds RoundSource) *Manager {
	return &Manager{store: store, rounds: rounds}
}

// Activate moves an OPEN instance to ACTIVE and points it at the first
// unfinished round of its season.
func (m *Manager) Activate(ctx context.Context, id string) (*game.Instance, error) {
	in, err := m.store.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(in.Status, game.InstanceActive); err != nil {
		return nil, fmt.Errorf("activate %s: %w", id, err)
	}

	rounds, err := m.rounds.FetchRounds(ctx, in.SeasonID)
	if err != nil {
		return nil, fmt.Errorf("activate %s: %w", id, err)
	}
	first, ok := firstOpenRound(rounds, in)
	if !ok {
		return nil, fmt.Errorf("activate %s: season %d has no unfinished round", id, in.SeasonID)
	}

	return m.store.UpdateInstance(ctx, id, func(cur *game.Instance) error {
		// Re-check under the row lock.
		if err := CanTransition(cur.Status, game.InstanceActive); err != nil {
			return fmt.Errorf("activate %s: %w", id, err)
		}
		cur.Status = game.InstanceActive
		ref := first.Ref()
		cur.CurrentRound = &ref
		cur.StartRound = first.Ordinal
		return nil
	})
}

// Cancel administratively cancels a non-terminal instance.
func (m *Manager) Cancel(ctx context.Context, id string) (*game.Instance, error) {
	return m.store.UpdateInstance(ctx, id, func(cur *game.Instance) error {
		if err := CanTransition(cur.Status, game.InstanceCancelled); err != nil {
			return fmt.Errorf("cancel %s: %w", id, err)
		}
		cur.Status = game.InstanceCancelled
		return nil
	})
}

// ActivationResult tracks an ActivateDue sweep.
type ActivationResult struct {
	Found     int
	Activated []string
	Errors    []string
}

// Summary returns a human-readable summary.
func (r *ActivationResult) Summary() string {
	return fmt.Sprintf("due=%d activated=%d errors=%d", r.Found, len(r.Activated), len(r.Errors))
}

// ActivateDue activates OPEN instances whose entry deadline has passed.
func (m *Manager) ActivateDue(ctx context.Context, now time.Time) (ActivationResult, error) {
	var result ActivationResult

	open, err := m.store.ListInstances(ctx, game.InstanceOpen)
	if err != nil {
		return result, fmt.Errorf("list open instances: %w", err)
	}

	for _, in := range open {
		if in.EntryDeadline == nil || in.EntryDeadline.After(now) {
			continue
		}
		result.Found++
		if _, err := m.Activate(ctx, in.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("instance %s: %v", in.ID, err))
			continue
		}
		result.Activated = append(result.Activated, in.ID)
	}
	return result, nil
}

func firstOpenRound(rounds []game.Round, in *game.Instance) (game.Round, bool) {
	for _, r := range rounds {
		if !r.Finished && in.WithinEnd(r.Ordinal) {
			return r, true
		}
	}
	return game.Round{}, false
}
