package sportmonks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/albapepper/scoracle-games/internal/game"
)

const roundPayload = `{
  "data": {
    "id": 339235,
    "fixtures": [
      {
        "id": 19134454,
        "round_id": 339235,
        "starting_at": "2026-08-15 14:00:00",
        "starting_at_timestamp": 1786802400,
        "state": {"developer_name": "FT"},
        "participants": [
          {"id": 9, "meta": {"location": "home"}},
          {"id": 14, "meta": {"location": "away"}}
        ],
        "scores": [
          {"participant_id": 9, "description": "1ST_HALF", "score": {"goals": 1, "participant": "home"}},
          {"participant_id": 9, "description": "CURRENT", "score": {"goals": 2, "participant": "home"}},
          {"participant_id": 14, "description": "CURRENT", "score": {"goals": 1, "participant": "away"}}
        ]
      },
      {
        "id": 19134455,
        "round_id": 339235,
        "starting_at": "2026-08-16 16:30:00",
        "state": {"developer_name": "NS"},
        "participants": [
          {"id": 1, "meta": {"location": "away"}},
          {"id": 8, "meta": {"location": "home"}}
        ],
        "scores": []
      },
      {
        "id": 19134456,
        "round_id": 339235,
        "state": {"developer_name": "POSTPONED"},
        "participants": [
          {"id": 3, "meta": {"location": "home"}},
          {"id": 6, "meta": {"location": "away"}}
        ]
      }
    ]
  }
}`

func newTestSource(t *testing.T, handler http.HandlerFunc) *FootballSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient("token", 6000, logger).WithBaseURL(srv.URL)
	return NewFootballSource(client, logger)
}

func TestRoundFixtures(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rounds/339235" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "token" {
			t.Error("missing Authorization token")
		}
		io.WriteString(w, roundPayload)
	})

	fixtures, err := src.RoundFixtures(context.Background(), 339235)
	if err != nil {
		t.Fatal(err)
	}
	if len(fixtures) != 3 {
		t.Fatalf("got %d fixtures", len(fixtures))
	}

	ft := fixtures[0]
	if ft.ExternalID != "19134454" || ft.State != game.FixtureFinished {
		t.Errorf("finished fixture = %+v", ft)
	}
	if ft.HomeTeamID != 9 || ft.AwayTeamID != 14 || *ft.HomeScore != 2 || *ft.AwayScore != 1 {
		t.Errorf("teams/scores = %d-%d %d:%d", ft.HomeTeamID, ft.AwayTeamID, *ft.HomeScore, *ft.AwayScore)
	}
	if ft.KickoffAt.Unix() != 1786802400 {
		t.Errorf("kickoff = %s", ft.KickoffAt)
	}

	ns := fixtures[1]
	if ns.State != game.FixtureScheduled || ns.HomeTeamID != 8 || ns.AwayTeamID != 1 || ns.HomeScore != nil {
		t.Errorf("scheduled fixture = %+v", ns)
	}
	if ns.KickoffAt.Hour() != 16 {
		t.Errorf("kickoff parsed from starting_at = %s", ns.KickoffAt)
	}

	if fixtures[2].State != game.FixturePostponed {
		t.Errorf("postponed state = %s", fixtures[2].State)
	}
}

func TestNormalizeState(t *testing.T) {
	tests := map[string]game.FixtureState{
		"FT":              game.FixtureFinished,
		"AET":             game.FixtureFinished,
		"FT_PEN":          game.FixtureFinished,
		"AWARDED":         game.FixtureFinished,
		"NS":              game.FixtureScheduled,
		"TBA":             game.FixtureScheduled,
		"POSTPONED":       game.FixturePostponed,
		"CANCELLED":       game.FixturePostponed,
		"ABANDONED":       game.FixturePostponed,
		"INPLAY_1ST_HALF": game.FixtureLive,
		"HT":              game.FixtureLive,
		"PEN_LIVE":        game.FixtureLive,
		"something":       game.FixtureLive,
	}
	for in, want := range tests {
		if got := normalizeState(in); got != want {
			t.Errorf("normalizeState(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSeasonRoundsPaginates(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			io.WriteString(w, `{"data":[{"id":11,"season_id":5,"name":"2","finished":false,"starting_at":"2026-08-22"}],"pagination":{"has_more":true}}`)
		default:
			io.WriteString(w, `{"data":[{"id":10,"season_id":5,"name":"1","finished":true,"starting_at":"2026-08-15"}],"pagination":{"has_more":false}}`)
		}
	})

	rounds, err := src.SeasonRounds(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) != 2 {
		t.Fatalf("got %d rounds", len(rounds))
	}
	if rounds[0].ExternalID != 11 || rounds[0].Ordinal != 2 || rounds[1].Ordinal != 1 || !rounds[1].Finished {
		t.Errorf("rounds = %+v", rounds)
	}
}

func TestNonOKStatusIsError(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, strings.Repeat("x", 500))
	})

	_, err := src.SeasonTeams(context.Background(), 5)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Status != http.StatusTooManyRequests || se.RetryAfter != 12*time.Second || len(se.Body) > 210 {
		t.Errorf("status error = %+v", se)
	}
	if strings.Contains(err.Error(), "token") {
		t.Errorf("token leaked into error: %v", err)
	}
}
