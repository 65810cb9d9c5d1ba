package sportmonks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/provider"
)

// FootballSource fetches and normalizes fixtures, rounds and teams.
type FootballSource struct {
	client *Client
	logger *slog.Logger
}

var _ provider.Source = (*FootballSource)(nil)

// NewFootballSource creates a Football source on top of a client.
func NewFootballSource(client *Client, logger *slog.Logger) *FootballSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FootballSource{client: client, logger: logger}
}

// SportMonks timestamps are UTC without a zone designator.
const smTimeLayout = "2006-01-02 15:04:05"

// --------------------------------------------------------------------------
// State mapping
// --------------------------------------------------------------------------

var finishedStates = map[string]bool{
	"FT": true, "AET": true, "FT_PEN": true, "AWARDED": true,
}

var scheduledStates = map[string]bool{
	"NS": true, "TBA": true,
}

var postponedStates = map[string]bool{
	"POSTPONED": true, "CANCELLED": true, "ABANDONED": true,
	"SUSPENDED": true, "DELAYED": true, "INTERRUPTED": true,
	"WO": true, "DELETED": true,
}

// normalizeState maps state.developer_name onto the engine's four states.
// Anything unrecognized is treated as in progress so it is never settled.
func normalizeState(dev string) game.FixtureState {
	dev = strings.ToUpper(strings.TrimSpace(dev))
	switch {
	case finishedStates[dev]:
		return game.FixtureFinished
	case scheduledStates[dev]:
		return game.FixtureScheduled
	case postponedStates[dev]:
		return game.FixturePostponed
	default:
		return game.FixtureLive
	}
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

type smFixtureRaw struct {
	ID         int64  `json:"id"`
	RoundID    *int64 `json:"round_id"`
	StartingAt string `json:"starting_at"`
	StartingTS *int64 `json:"starting_at_timestamp"`
	State      *struct {
		DeveloperName string `json:"developer_name"`
	} `json:"state"`
	Participants []struct {
		ID   int64 `json:"id"`
		Meta struct {
			Location string `json:"location"`
		} `json:"meta"`
	} `json:"participants"`
	Scores []struct {
		ParticipantID int64          `json:"participant_id"`
		Description   string         `json:"description"`
		Score         map[string]any `json:"score"`
	} `json:"scores"`
}

// RoundFixtures fetches every fixture of a round with participants, scores
// and state included.
func (s *FootballSource) RoundFixtures(ctx context.Context, roundID int64) ([]game.Fixture, error) {
	resp, err := s.client.get(ctx, fmt.Sprintf("/rounds/%d", roundID), url.Values{
		"include": {"fixtures.participants;fixtures.scores;fixtures.state"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch round %d fixtures: %w", roundID, err)
	}

	var round struct {
		Fixtures []json.RawMessage `json:"fixtures"`
	}
	if err := json.Unmarshal(resp.Data, &round); err != nil {
		return nil, fmt.Errorf("decode round %d: %w", roundID, err)
	}

	fixtures := make([]game.Fixture, 0, len(round.Fixtures))
	for _, raw := range round.Fixtures {
		var f smFixtureRaw
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode fixture in round %d: %w", roundID, err)
		}
		fx, err := normalizeFixture(f, roundID)
		if err != nil {
			// A fixture without both sides cannot be settled; skipping it
			// would silently hand byes to its teams.
			return nil, err
		}
		fixtures = append(fixtures, fx)
	}
	return fixtures, nil
}

func normalizeFixture(raw smFixtureRaw, roundID int64) (game.Fixture, error) {
	f := game.Fixture{
		ExternalID: strconv.FormatInt(raw.ID, 10),
		RoundID:    roundID,
		State:      game.FixtureScheduled,
	}
	if raw.RoundID != nil {
		f.RoundID = *raw.RoundID
	}
	if raw.State != nil {
		f.State = normalizeState(raw.State.DeveloperName)
	}

	switch {
	case raw.StartingTS != nil:
		f.KickoffAt = time.Unix(*raw.StartingTS, 0).UTC()
	case raw.StartingAt != "":
		if t, err := time.ParseInLocation(smTimeLayout, raw.StartingAt, time.UTC); err == nil {
			f.KickoffAt = t
		}
	}

	for _, p := range raw.Participants {
		switch p.Meta.Location {
		case "home":
			f.HomeTeamID = p.ID
		case "away":
			f.AwayTeamID = p.ID
		}
	}
	if f.HomeTeamID == 0 || f.AwayTeamID == 0 {
		return f, fmt.Errorf("fixture %d: missing home/away participant", raw.ID)
	}

	for _, sc := range raw.Scores {
		if sc.Description != "CURRENT" {
			continue
		}
		goals, ok := provider.ExtractInt(sc.Score)
		if !ok {
			continue
		}
		switch sc.ParticipantID {
		case f.HomeTeamID:
			f.HomeScore = &goals
		case f.AwayTeamID:
			f.AwayScore = &goals
		}
	}

	// A finished match always has a score, even a goalless one.
	if f.State == game.FixtureFinished {
		if f.HomeScore == nil && f.AwayScore != nil {
			zero := 0
			f.HomeScore = &zero
		}
		if f.AwayScore == nil && f.HomeScore != nil {
			zero := 0
			f.AwayScore = &zero
		}
	}
	return f, nil
}

// --------------------------------------------------------------------------
// Rounds
// --------------------------------------------------------------------------

type smRoundRaw struct {
	ID         int64  `json:"id"`
	SeasonID   int64  `json:"season_id"`
	Name       string `json:"name"`
	Finished   bool   `json:"finished"`
	StartingAt string `json:"starting_at"`
}

// SeasonRounds fetches the rounds of a season. Round names are matchday
// numbers for league competitions; when they are not, ordinals follow the
// start date.
func (s *FootballSource) SeasonRounds(ctx context.Context, seasonID int64) ([]game.Round, error) {
	rawItems, err := s.client.getAll(ctx, fmt.Sprintf("/rounds/seasons/%d", seasonID), nil, 50)
	if err != nil {
		return nil, fmt.Errorf("fetch season %d rounds: %w", seasonID, err)
	}

	rounds := make([]game.Round, 0, len(rawItems))
	numeric := true
	for _, raw := range rawItems {
		var r smRoundRaw
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode round: %w", err)
		}
		round := game.Round{
			ExternalID: r.ID,
			SeasonID:   r.SeasonID,
			Name:       r.Name,
			Finished:   r.Finished,
		}
		if round.SeasonID == 0 {
			round.SeasonID = seasonID
		}
		if t, err := time.Parse("2006-01-02", r.StartingAt); err == nil {
			round.StartsAt = &t
		}
		if n, err := strconv.Atoi(strings.TrimSpace(r.Name)); err == nil {
			round.Ordinal = n
		} else {
			numeric = false
		}
		rounds = append(rounds, round)
	}

	if !numeric {
		sort.SliceStable(rounds, func(i, j int) bool {
			a, b := rounds[i].StartsAt, rounds[j].StartsAt
			if a == nil || b == nil {
				return rounds[i].ExternalID < rounds[j].ExternalID
			}
			return a.Before(*b)
		})
		for i := range rounds {
			rounds[i].Ordinal = i + 1
		}
		s.logger.Debug("Round names not numeric, ordered by start date", "season", seasonID)
	}
	return rounds, nil
}

// --------------------------------------------------------------------------
// Teams
// --------------------------------------------------------------------------

type smTeamRaw struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortCode string `json:"short_code"`
	ImagePath string `json:"image_path"`
}

// SeasonTeams fetches all teams for a season.
func (s *FootballSource) SeasonTeams(ctx context.Context, seasonID int64) ([]game.Team, error) {
	rawItems, err := s.client.getAll(ctx, fmt.Sprintf("/teams/seasons/%d", seasonID), nil, 50)
	if err != nil {
		return nil, fmt.Errorf("fetch season %d teams: %w", seasonID, err)
	}

	teams := make([]game.Team, 0, len(rawItems))
	for _, raw := range rawItems {
		var t smTeamRaw
		if err := json.Unmarshal(raw, &t); err != nil {
			s.logger.Warn("decode team", "error", err)
			continue
		}
		teams = append(teams, game.Team{
			ID:        t.ID,
			SeasonID:  seasonID,
			Name:      t.Name,
			ShortCode: t.ShortCode,
			LogoURL:   t.ImagePath,
		})
	}
	return teams, nil
}
