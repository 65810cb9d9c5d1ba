package rules

import (
	"fmt"

	"github.com/albapepper/scoracle-games/internal/game"
)

// DefaultTarget is the "Race to 33" goal threshold.
const DefaultTarget = 33

// Cumulative adds the goals scored by an entry's assigned teams until the
// running total reaches Target.
type Cumulative struct {
	Target int
}

func (Cumulative) Kind() Kind { return KindCumulative }

func (s Cumulative) target() int {
	if s.Target <= 0 {
		return DefaultTarget
	}
	return s.Target
}

// Apply adds the fixture's goals for every assigned team taking part. If two
// assigned teams meet, both sides count.
func (s Cumulative) Apply(e game.Entry, f game.Fixture) (Outcome, error) {
	out, done := begin(e, f)
	if done {
		return out, nil
	}

	var involved []int64
	for _, t := range e.AssignedTeamIDs {
		if f.Involves(t) {
			involved = append(involved, t)
		}
	}
	if len(involved) == 0 {
		return out, fmt.Errorf("entry %s fixture %s: %w", e.ID, f.ExternalID, ErrFixtureNotRelevant)
	}
	if err := checkFinal(f); err != nil {
		return out, err
	}

	for _, t := range involved {
		goals, _ := f.GoalsFor(t)
		out.GoalsAdded += goals
	}
	out.Entry.Score += out.GoalsAdded
	if out.Entry.Score >= s.target() {
		out.Entry.Status = game.EntryWon
	}

	out.Entry.AppliedFixtures = append(out.Entry.AppliedFixtures, f.ExternalID)
	return out, nil
}

// CloseRound ends the game as soon as anyone has won; everyone still racing
// loses. Without a winner the race continues until rounds run out.
func (Cumulative) CloseRound(in RoundClose) RoundVerdict {
	var active []string
	won := false
	for _, e := range in.Entries {
		switch e.Status {
		case game.EntryActive:
			active = append(active, e.ID)
		case game.EntryWon:
			won = true
		}
	}

	if won || !in.HasNext {
		return RoundVerdict{Lost: active, Complete: true}
	}
	return RoundVerdict{Advance: true}
}
