// Package rules holds the game-type strategies that turn a final fixture
// result into an entry transition, and the round-close verdicts that decide
// winners, losers and instance completion.
package rules

import (
	"errors"
	"fmt"

	"github.com/albapepper/scoracle-games/internal/game"
)

var (
	ErrFixtureNotRelevant = errors.New("fixture does not involve the entry's team")
	ErrFixtureNotFinal    = errors.New("fixture has no final result")
	ErrUnknownGameType    = errors.New("unknown game type")
)

// Kind identifies a strategy family.
type Kind string

const (
	KindElimination Kind = "elimination"
	KindCumulative  Kind = "cumulative"
)

// Strategy applies one game type's rules.
type Strategy interface {
	Kind() Kind

	// Apply evaluates one final fixture against one entry. It never mutates
	// its input; the returned Outcome carries the updated copy.
	Apply(e game.Entry, f game.Fixture) (Outcome, error)

	// CloseRound decides what happens once every entry's fixtures for the
	// round are resolved.
	CloseRound(in RoundClose) RoundVerdict
}

// Outcome is the result of applying a fixture to an entry.
type Outcome struct {
	Entry          game.Entry
	Previous       game.EntryStatus
	AlreadyApplied bool
	GoalsAdded     int
}

// StatusChanged reports whether Apply moved the entry to a new status.
func (o Outcome) StatusChanged() bool {
	return o.Entry.Status != o.Previous
}

// RoundClose is the input to a round-close decision.
type RoundClose struct {
	Round   int // ordinal of the round being closed
	Entries []game.Entry
	HasNext bool // a next round exists within the instance's end
}

// RoundVerdict lists the entries to re-mark and what happens to the instance.
type RoundVerdict struct {
	Won      []string
	Lost     []string
	Advance  bool
	Complete bool
}

// --------------------------------------------------------------------------
// Shared helpers
// --------------------------------------------------------------------------

// begin performs the checks common to every strategy. done is true when the
// caller must return the outcome unchanged.
func begin(e game.Entry, f game.Fixture) (out Outcome, done bool) {
	out = Outcome{Entry: e.Clone(), Previous: e.Status}
	if e.HasApplied(f.ExternalID) {
		out.AlreadyApplied = true
		return out, true
	}
	if e.Status.Terminal() {
		return out, true
	}
	return out, false
}

func checkFinal(f game.Fixture) error {
	if !f.Final() {
		return fmt.Errorf("fixture %s state %s: %w", f.ExternalID, f.State, ErrFixtureNotFinal)
	}
	return nil
}

func advanceOrComplete(hasNext bool) RoundVerdict {
	if hasNext {
		return RoundVerdict{Advance: true}
	}
	return RoundVerdict{Complete: true}
}
