package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/store"
)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	if err := s.CreateInstance(ctx, &game.Instance{ID: "g1", GameTypeSlug: "last-man-standing", Status: game.InstanceActive}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"e1", "e2"} {
		e := &game.Entry{ID: id, UserID: "u-" + id, InstanceID: "g1", Status: game.EntryActive}
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestCreateEntryDuplicate(t *testing.T) {
	s := seed(t)
	err := s.CreateEntry(context.Background(), &game.Entry{ID: "e3", UserID: "u-e1", InstanceID: "g1"})
	if !errors.Is(err, game.ErrDuplicateEntry) {
		t.Fatalf("err = %v, want ErrDuplicateEntry", err)
	}
}

func TestUpdateEntryRejectsCancelledInstance(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	_, err := s.UpdateInstance(ctx, "g1", func(in *game.Instance) error {
		in.Status = game.InstanceCancelled
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	e, _ := s.GetEntry(ctx, "e1")
	e.Score = 9
	if err := s.UpdateEntry(ctx, *e); !errors.Is(err, game.ErrInstanceCancelled) {
		t.Fatalf("err = %v, want ErrInstanceCancelled", err)
	}
	got, _ := s.GetEntry(ctx, "e1")
	if got.Score != 0 {
		t.Errorf("score written despite cancellation: %d", got.Score)
	}
}

func TestCloseRoundRollsBackOnTransitionError(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := s.CloseRound(ctx, "g1", store.RoundClosure{
		Won:        []string{"e1"},
		Lost:       []string{"e2"},
		Transition: func(*game.Instance) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	for _, id := range []string{"e1", "e2"} {
		e, _ := s.GetEntry(ctx, id)
		if e.Status != game.EntryActive {
			t.Errorf("%s status = %s after rollback", id, e.Status)
		}
	}
}

func TestCloseRoundMarksEntries(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	in, err := s.CloseRound(ctx, "g1", store.RoundClosure{
		Won:  []string{"e1"},
		Lost: []string{"e2"},
		Transition: func(in *game.Instance) error {
			in.Status = game.InstanceCompleted
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if in.Status != game.InstanceCompleted {
		t.Errorf("instance status = %s", in.Status)
	}

	st, err := s.Standings(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(st) != 2 || st[0].EntryID != "e1" || st[0].Status != game.EntryWon || st[1].Status != game.EntryLost {
		t.Errorf("standings = %+v", st)
	}
}
