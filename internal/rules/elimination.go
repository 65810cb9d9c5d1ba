package rules

import (
	"fmt"

	"github.com/albapepper/scoracle-games/internal/game"
)

// Elimination is the "Last Man Standing" family: each round the entry's
// current team must avoid defeat.
type Elimination struct {
	DrawEliminates bool
}

func (Elimination) Kind() Kind { return KindElimination }

// Apply eliminates the entry when its current team loses. The settlement
// pass stamps EliminatedRound since only it knows the round ordinal.
func (s Elimination) Apply(e game.Entry, f game.Fixture) (Outcome, error) {
	out, done := begin(e, f)
	if done {
		return out, nil
	}

	team, ok := e.CurrentTeam()
	if !ok || !f.Involves(team) {
		return out, fmt.Errorf("entry %s fixture %s: %w", e.ID, f.ExternalID, ErrFixtureNotRelevant)
	}
	if err := checkFinal(f); err != nil {
		return out, err
	}

	scored, _ := f.GoalsFor(team)
	conceded, _ := f.GoalsAgainst(team)

	switch {
	case scored < conceded:
		out.Entry.Status = game.EntryEliminated
	case scored == conceded && s.DrawEliminates:
		out.Entry.Status = game.EntryEliminated
	}

	out.Entry.AppliedFixtures = append(out.Entry.AppliedFixtures, f.ExternalID)
	return out, nil
}

// CloseRound:
//   - nobody survived: everyone knocked out this round shares the win
//   - one survivor: outright winner
//   - several survivors: advance, or share the win when no round is left
func (Elimination) CloseRound(in RoundClose) RoundVerdict {
	var survivors, outThisRound []string
	for _, e := range in.Entries {
		switch e.Status {
		case game.EntryActive:
			survivors = append(survivors, e.ID)
		case game.EntryEliminated:
			if e.EliminatedRound != nil && *e.EliminatedRound == in.Round {
				outThisRound = append(outThisRound, e.ID)
			}
		}
	}

	switch {
	case len(survivors) == 0 && len(outThisRound) == 0:
		// No live entries at all; nothing to decide but the calendar.
		return advanceOrComplete(in.HasNext)
	case len(survivors) == 0:
		return RoundVerdict{Won: outThisRound, Complete: true}
	case len(survivors) == 1:
		return RoundVerdict{Won: survivors, Complete: true}
	case in.HasNext:
		return RoundVerdict{Advance: true}
	default:
		return RoundVerdict{Won: survivors, Complete: true}
	}
}
