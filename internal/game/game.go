// Package game defines the domain model shared by the settlement engine:
// game instances, user entries, fixtures, rounds and teams.
package game

import (
	"slices"
	"time"

	"github.com/gosimple/slug"
)

// --------------------------------------------------------------------------
// Instance
// --------------------------------------------------------------------------

// InstanceStatus is the lifecycle state of a game instance.
type InstanceStatus string

const (
	InstanceOpen      InstanceStatus = "OPEN"
	InstanceActive    InstanceStatus = "ACTIVE"
	InstanceCompleted InstanceStatus = "COMPLETED"
	InstanceCancelled InstanceStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s InstanceStatus) Terminal() bool {
	return s == InstanceCompleted || s == InstanceCancelled
}

// RoundRef points at a provider round and its position in the season.
type RoundRef struct {
	ID      int64 `json:"id"`
	Ordinal int   `json:"ordinal"`
}

// Instance is one run of a game template.
type Instance struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	GameTypeSlug  string         `json:"game_type_slug"`
	Status        InstanceStatus `json:"status"`
	SeasonID      int64          `json:"season_id"`
	CurrentRound  *RoundRef      `json:"current_round,omitempty"`
	StartRound    int            `json:"start_round,omitempty"` // ordinal of the first round played
	EndRound      *int           `json:"end_round,omitempty"` // ordinal; nil = last round of the season
	EntryFee      int64          `json:"entry_fee"`           // minor currency units
	EntryDeadline *time.Time     `json:"entry_deadline,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// WithinEnd reports whether a round ordinal is inside the instance's defined end.
func (in *Instance) WithinEnd(ordinal int) bool {
	return in.EndRound == nil || ordinal <= *in.EndRound
}

// NormalizeSlug turns a game type name ("Race to 33") into its registry key.
func NormalizeSlug(name string) string {
	return slug.Make(name)
}

// --------------------------------------------------------------------------
// Entry
// --------------------------------------------------------------------------

// EntryStatus is the state of one user's participation.
type EntryStatus string

const (
	EntryActive     EntryStatus = "ACTIVE"
	EntryEliminated EntryStatus = "ELIMINATED"
	EntryWon        EntryStatus = "WON"
	EntryLost       EntryStatus = "LOST"
)

// Terminal reports whether the entry can no longer change.
func (s EntryStatus) Terminal() bool {
	return s != EntryActive
}

// Entry is a user's paid participation record in one game instance.
type Entry struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	InstanceID      string      `json:"game_instance_id"`
	Status          EntryStatus `json:"status"`
	AssignedTeamIDs []int64     `json:"assigned_team_ids"`
	PickRound       int         `json:"pick_round,omitempty"` // round ordinal the latest pick is for; 0 = picked before activation
	Score           int         `json:"score"`
	AppliedFixtures []string    `json:"applied_fixtures,omitempty"`
	EliminatedRound *int        `json:"eliminated_round,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// HasApplied reports whether a fixture was already applied to the entry.
func (e *Entry) HasApplied(fixtureID string) bool {
	return slices.Contains(e.AppliedFixtures, fixtureID)
}

// CurrentTeam returns the most recently assigned team.
func (e *Entry) CurrentTeam() (int64, bool) {
	if len(e.AssignedTeamIDs) == 0 {
		return 0, false
	}
	return e.AssignedTeamIDs[len(e.AssignedTeamIDs)-1], true
}

// NeedsPick reports whether an elimination entry lacks a pick for round.
// Picks made before activation (PickRound 0) count for startRound.
func (e *Entry) NeedsPick(round, startRound int) bool {
	if len(e.AssignedTeamIDs) == 0 {
		return true
	}
	pick := e.PickRound
	if pick == 0 {
		pick = startRound
	}
	return pick < round
}

// Clone returns a deep copy so rule code can mutate freely.
func (e Entry) Clone() Entry {
	e.AssignedTeamIDs = slices.Clone(e.AssignedTeamIDs)
	e.AppliedFixtures = slices.Clone(e.AppliedFixtures)
	if e.EliminatedRound != nil {
		r := *e.EliminatedRound
		e.EliminatedRound = &r
	}
	return e
}

// --------------------------------------------------------------------------
// Fixtures, rounds, teams
// --------------------------------------------------------------------------

// FixtureState is the normalized match state.
type FixtureState string

const (
	FixtureScheduled FixtureState = "SCHEDULED"
	FixtureLive      FixtureState = "LIVE"
	FixtureFinished  FixtureState = "FINISHED"
	FixturePostponed FixtureState = "POSTPONED"
)

// Fixture is a single real-world match.
type Fixture struct {
	ExternalID string       `json:"external_id"`
	RoundID    int64        `json:"round_id"`
	HomeTeamID int64        `json:"home_team_id"`
	AwayTeamID int64        `json:"away_team_id"`
	HomeScore  *int         `json:"home_score,omitempty"`
	AwayScore  *int         `json:"away_score,omitempty"`
	State      FixtureState `json:"state"`
	KickoffAt  time.Time    `json:"kickoff_at"`
}

// Final reports whether the fixture is finished with both scores present.
func (f *Fixture) Final() bool {
	return f.State == FixtureFinished && f.HomeScore != nil && f.AwayScore != nil
}

// Involves reports whether the team plays in the fixture.
func (f *Fixture) Involves(teamID int64) bool {
	return f.HomeTeamID == teamID || f.AwayTeamID == teamID
}

// GoalsFor returns the goals scored by a team. ok is false when the team does
// not play or the score is not final.
func (f *Fixture) GoalsFor(teamID int64) (goals int, ok bool) {
	if !f.Final() {
		return 0, false
	}
	switch teamID {
	case f.HomeTeamID:
		return *f.HomeScore, true
	case f.AwayTeamID:
		return *f.AwayScore, true
	}
	return 0, false
}

// GoalsAgainst returns the goals conceded by a team.
func (f *Fixture) GoalsAgainst(teamID int64) (goals int, ok bool) {
	if !f.Final() {
		return 0, false
	}
	switch teamID {
	case f.HomeTeamID:
		return *f.AwayScore, true
	case f.AwayTeamID:
		return *f.HomeScore, true
	}
	return 0, false
}

// Round groups fixtures within a competition period.
type Round struct {
	ExternalID int64      `json:"external_id"`
	SeasonID   int64      `json:"season_id"`
	Ordinal    int        `json:"ordinal"`
	Name       string     `json:"name,omitempty"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	Finished   bool       `json:"finished"`
}

// Ref returns the round as an instance pointer.
func (r Round) Ref() RoundRef {
	return RoundRef{ID: r.ExternalID, Ordinal: r.Ordinal}
}

// Team is a read-mostly reference row populated from the feed.
type Team struct {
	ID         int64  `json:"id"`
	SeasonID   int64  `json:"season_id"`
	Name       string `json:"name"`
	ShortCode  string `json:"short_code,omitempty"`
	LogoURL    string `json:"logo_url,omitempty"`
	Eliminated bool   `json:"eliminated"`
}

// NextRound returns the first round after current in ordinal order.
func NextRound(rounds []Round, current int) (Round, bool) {
	var next Round
	found := false
	for _, r := range rounds {
		if r.Ordinal > current && (!found || r.Ordinal < next.Ordinal) {
			next = r
			found = true
		}
	}
	return next, found
}
