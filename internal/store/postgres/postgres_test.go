package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-games/internal/config"
	"github.com/albapepper/scoracle-games/internal/db"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/lifecycle"
	"github.com/albapepper/scoracle-games/internal/store"
)

// These tests need a disposable database in TEST_DATABASE_URL.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.New(ctx, &config.Config{
		DatabaseURL: url, DBPoolMinConns: 1, DBPoolMaxConns: 4, DBPoolMaxLife: time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	return New(pool)
}

func seedInstance(t *testing.T, s *Store) *game.Instance {
	t.Helper()
	in := &game.Instance{
		ID: uuid.NewString(), Name: "test", GameTypeSlug: "last-man-standing",
		Status: game.InstanceActive, SeasonID: 1, CurrentRound: &game.RoundRef{ID: 11, Ordinal: 1}, StartRound: 1,
	}
	if err := s.CreateInstance(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	return in
}

func TestEntryRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	in := seedInstance(t, s)

	e := &game.Entry{ID: uuid.NewString(), UserID: "u1", InstanceID: in.ID, AssignedTeamIDs: []int64{7}}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	dup := &game.Entry{ID: uuid.NewString(), UserID: "u1", InstanceID: in.ID}
	if err := s.CreateEntry(ctx, dup); !errors.Is(err, game.ErrDuplicateEntry) {
		t.Fatalf("duplicate: err = %v", err)
	}

	round := 1
	e.Status = game.EntryEliminated
	e.EliminatedRound = &round
	e.AppliedFixtures = []string{"f1"}
	if err := s.UpdateEntry(ctx, *e); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != game.EntryEliminated || !got.HasApplied("f1") || got.AssignedTeamIDs[0] != 7 {
		t.Errorf("entry = %+v", got)
	}
}

func TestCancelBlocksEntryWrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	in := seedInstance(t, s)

	e := &game.Entry{ID: uuid.NewString(), UserID: "u1", InstanceID: in.ID}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	if _, err := lifecycle.NewManager(s, nil).Cancel(ctx, in.ID); err != nil {
		t.Fatal(err)
	}
	e.Score = 3
	if err := s.UpdateEntry(ctx, *e); !errors.Is(err, game.ErrInstanceCancelled) {
		t.Errorf("err = %v, want ErrInstanceCancelled", err)
	}
}

func TestCloseRoundRollsBack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	in := seedInstance(t, s)

	e := &game.Entry{ID: uuid.NewString(), UserID: "u1", InstanceID: in.ID}
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatal(err)
	}

	_, err := s.CloseRound(ctx, in.ID, store.RoundClosure{
		Won:        []string{e.ID, "missing"},
		Transition: lifecycle.Complete,
	})
	if !errors.Is(err, game.ErrEntryNotFound) {
		t.Fatalf("err = %v", err)
	}
	got, _ := s.GetEntry(ctx, e.ID)
	cur, _ := s.GetInstance(ctx, in.ID)
	if got.Status != game.EntryActive || cur.Status != game.InstanceActive {
		t.Errorf("partial close persisted: entry=%s instance=%s", got.Status, cur.Status)
	}

	cur, err = s.CloseRound(ctx, in.ID, store.RoundClosure{Won: []string{e.ID}, Transition: lifecycle.Complete})
	if err != nil {
		t.Fatal(err)
	}
	if cur.Status != game.InstanceCompleted {
		t.Errorf("status = %s", cur.Status)
	}
}
