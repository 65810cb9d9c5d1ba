package settle

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/albapepper/scoracle-games/internal/assign"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/lease"
	"github.com/albapepper/scoracle-games/internal/notify"
	"github.com/albapepper/scoracle-games/internal/rules"
	"github.com/albapepper/scoracle-games/internal/store/memory"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeFeed struct {
	mu       sync.Mutex
	fixtures map[int64][]game.Fixture
	rounds   []game.Round
	err      error
	calErr   error

	// When gate is set, FetchRoundFixtures signals entered and waits.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeFeed) FetchRoundFixtures(ctx context.Context, roundID int64) ([]game.Fixture, error) {
	if f.gate != nil {
		f.entered <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.fixtures[roundID], nil
}

func (f *fakeFeed) FetchRounds(context.Context, int64) ([]game.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calErr != nil {
		return nil, f.calErr
	}
	return f.rounds, nil
}

func (f *fakeFeed) set(roundID int64, fixtures ...game.Fixture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixtures[roundID] = fixtures
}

type recordingSink struct {
	mu      sync.Mutex
	events  []notify.Event
	ctxErrs []error
}

func (s *recordingSink) Publish(ctx context.Context, events []notify.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		s.ctxErrs = append(s.ctxErrs, err)
		return err
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) types() []notify.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.EventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

// --------------------------------------------------------------------------
// Fixture builders
// --------------------------------------------------------------------------

const season = 7

var kickoff = time.Date(2026, 8, 15, 15, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func finished(id string, home, away int64, hs, as int) game.Fixture {
	return game.Fixture{
		ExternalID: id, RoundID: 101, HomeTeamID: home, AwayTeamID: away,
		HomeScore: ptr(hs), AwayScore: ptr(as), State: game.FixtureFinished, KickoffAt: kickoff,
	}
}

func withState(f game.Fixture, s game.FixtureState) game.Fixture {
	f.State = s
	if s != game.FixtureFinished {
		f.HomeScore, f.AwayScore = nil, nil
	}
	return f
}

type harness struct {
	store  *memory.Store
	feed   *fakeFeed
	sink   *recordingSink
	locker *lease.Memory
	engine *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	var teams []game.Team
	for id := int64(10); id <= 90; id += 10 {
		teams = append(teams, game.Team{ID: id, SeasonID: season, Name: "team"})
	}
	if _, err := st.UpsertTeams(ctx, teams); err != nil {
		t.Fatal(err)
	}

	feed := &fakeFeed{
		fixtures: make(map[int64][]game.Fixture),
		rounds: []game.Round{
			{ExternalID: 101, SeasonID: season, Ordinal: 1},
			{ExternalID: 102, SeasonID: season, Ordinal: 2},
			{ExternalID: 103, SeasonID: season, Ordinal: 3},
		},
	}
	reg := rules.DefaultRegistry()
	sink := &recordingSink{}
	locker := lease.NewMemory()

	eng := New(Deps{
		Store:    st,
		Feed:     feed,
		Assigner: assign.New(st, reg, rand.NewPCG(3, 4)),
		Rules:    reg,
		Locker:   locker,
		Sink:     sink,
	}, Config{LeaseTTL: 5 * time.Second, StoreTimeout: time.Second})

	return &harness{store: st, feed: feed, sink: sink, locker: locker, engine: eng}
}

func (h *harness) instance(t *testing.T, id, slug string) {
	t.Helper()
	err := h.store.CreateInstance(context.Background(), &game.Instance{
		ID: id, GameTypeSlug: slug, Status: game.InstanceActive, SeasonID: season,
		CurrentRound: &game.RoundRef{ID: 101, Ordinal: 1}, StartRound: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (h *harness) entry(t *testing.T, instanceID, id string, score int, teams ...int64) {
	t.Helper()
	err := h.store.CreateEntry(context.Background(), &game.Entry{
		ID: id, UserID: "user-" + id, InstanceID: instanceID, Status: game.EntryActive,
		AssignedTeamIDs: teams, Score: score,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (h *harness) get(t *testing.T, id string) *game.Entry {
	t.Helper()
	e, err := h.store.GetEntry(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func (h *harness) status(t *testing.T, id string) game.InstanceStatus {
	t.Helper()
	in, err := h.store.GetInstance(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return in.Status
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestEliminationLossEliminates(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "loser", 0, 10)
	h.entry(t, "g1", "winner", 0, 30)
	h.entry(t, "g1", "drawer", 0, 50)
	h.feed.set(101,
		finished("f1", 10, 20, 0, 2),
		finished("f2", 30, 40, 1, 0),
		finished("f3", 60, 50, 2, 2),
	)

	res, err := h.engine.Settle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusAdvanced || res.NextRound != 2 {
		t.Fatalf("result = %s", res.Summary())
	}

	loser := h.get(t, "loser")
	if loser.Status != game.EntryEliminated || loser.EliminatedRound == nil || *loser.EliminatedRound != 1 {
		t.Errorf("loser = %+v", loser)
	}
	for _, id := range []string{"winner", "drawer"} {
		e := h.get(t, id)
		if e.Status != game.EntryActive {
			t.Errorf("%s status = %s", id, e.Status)
		}
		if len(e.AssignedTeamIDs) != 2 || e.PickRound != 2 {
			t.Errorf("%s not given a round 2 pick: %+v", id, e)
		}
	}

	in, _ := h.store.GetInstance(context.Background(), "g1")
	if in.CurrentRound.Ordinal != 2 || in.CurrentRound.ID != 102 {
		t.Errorf("current round = %+v", in.CurrentRound)
	}

	want := []notify.EventType{notify.EntryEliminated, notify.InstanceRoundAdvanced}
	if got := h.sink.types(); !equalTypes(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCumulativeReachesTarget(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "race-to-33")
	h.entry(t, "g1", "leader", 30, 10)
	h.entry(t, "g1", "chaser", 5, 30)
	h.feed.set(101,
		finished("f1", 10, 20, 3, 1),
		finished("f2", 40, 30, 0, 2),
	)

	res, err := h.engine.Settle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}

	leader := h.get(t, "leader")
	if leader.Score != 33 || leader.Status != game.EntryWon {
		t.Errorf("leader = %+v", leader)
	}
	chaser := h.get(t, "chaser")
	if chaser.Score != 7 || chaser.Status != game.EntryLost {
		t.Errorf("chaser = %+v", chaser)
	}
	if res.Status != StatusCompleted || h.status(t, "g1") != game.InstanceCompleted {
		t.Errorf("result = %s, instance = %s", res.Summary(), h.status(t, "g1"))
	}

	want := []notify.EventType{notify.EntryWon, notify.EntryLost, notify.InstanceCompleted}
	if got := h.sink.types(); !equalTypes(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestConcurrentPassIsRejected(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.feed.set(101, withState(finished("f1", 10, 20, 0, 0), game.FixtureLive))
	h.feed.gate = make(chan struct{})
	h.feed.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.engine.Settle(context.Background(), "g1")
		done <- err
	}()
	<-h.feed.entered

	_, err := h.engine.Settle(context.Background(), "g1")
	if !errors.Is(err, game.ErrConcurrentSettlement) {
		t.Fatalf("second pass: err = %v, want ErrConcurrentSettlement", err)
	}

	close(h.feed.gate)
	if err := <-done; err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// Lease released: a new pass goes through.
	h.feed.gate = nil
	if _, err := h.engine.Settle(context.Background(), "g1"); err != nil {
		t.Fatalf("pass after release: %v", err)
	}
}

func TestFeedFailureMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.entry(t, "g1", "e2", 0, 30)
	h.feed.set(101, finished("f1", 10, 20, 0, 1), finished("f2", 30, 40, 2, 0))
	h.feed.err = errors.Join(game.ErrFeedUnavailable, context.DeadlineExceeded)

	res, err := h.engine.Settle(context.Background(), "g1")
	if !errors.Is(err, game.ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable", err)
	}
	if res.Status != StatusAborted {
		t.Errorf("status = %s", res.Status)
	}
	if h.store.EntryWrites != 0 || h.status(t, "g1") != game.InstanceActive || len(h.sink.types()) != 0 {
		t.Errorf("aborted pass had effects: writes=%d status=%s events=%v", h.store.EntryWrites, h.status(t, "g1"), h.sink.types())
	}

	// Retry once the feed recovers.
	h.feed.err = nil
	res, err = h.engine.Settle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCompleted || h.get(t, "e2").Status != game.EntryWon {
		t.Errorf("retry result = %s", res.Summary())
	}
}

func TestCalendarFailureMutatesNothing(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.entry(t, "g1", "e2", 0, 30)
	h.feed.set(101, finished("f1", 10, 20, 0, 1), finished("f2", 30, 40, 2, 0))
	h.feed.calErr = errors.Join(game.ErrFeedUnavailable, context.DeadlineExceeded)

	res, err := h.engine.Settle(context.Background(), "g1")
	if !errors.Is(err, game.ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable", err)
	}
	if res.Status != StatusAborted {
		t.Errorf("status = %s", res.Status)
	}
	if h.store.EntryWrites != 0 || h.get(t, "e1").Status != game.EntryActive || len(h.sink.types()) != 0 {
		t.Errorf("aborted pass had effects: writes=%d e1=%s events=%v",
			h.store.EntryWrites, h.get(t, "e1").Status, h.sink.types())
	}
}

type cancelAfterWriteStore struct {
	*memory.Store
	cancel context.CancelFunc
}

// UpdateEntry commits, then cancels the caller's context.
func (s *cancelAfterWriteStore) UpdateEntry(ctx context.Context, e game.Entry) error {
	err := s.Store.UpdateEntry(ctx, e)
	s.cancel()
	return err
}

func TestCommittedEventsSurviveCancelledContext(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.entry(t, "g1", "e2", 0, 30)
	h.feed.set(101, finished("f1", 10, 20, 0, 1), finished("f2", 30, 40, 0, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cs := &cancelAfterWriteStore{Store: h.store, cancel: cancel}
	reg := rules.DefaultRegistry()
	eng := New(Deps{
		Store: cs, Feed: h.feed, Assigner: assign.New(cs, reg, nil), Rules: reg, Sink: h.sink,
	}, Config{})

	res, err := eng.Settle(ctx, "g1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.SinkError != "" || len(h.sink.ctxErrs) != 0 {
		t.Errorf("publish saw a dead context: sink error %q, %v", res.SinkError, h.sink.ctxErrs)
	}
	if h.get(t, "e1").Status != game.EntryEliminated || h.get(t, "e2").Status != game.EntryActive {
		t.Errorf("e1 = %s e2 = %s", h.get(t, "e1").Status, h.get(t, "e2").Status)
	}
	if got := h.sink.types(); !equalTypes(got, []notify.EventType{notify.EntryEliminated}) {
		t.Errorf("events = %v", got)
	}
}

type failRedisOnRead struct {
	*memory.Store
	mr *miniredis.Miniredis
}

// GetInstance runs after the lease is taken; from then on Redis refuses.
func (s *failRedisOnRead) GetInstance(ctx context.Context, id string) (*game.Instance, error) {
	s.mr.SetError("ERR redis unavailable")
	return s.Store.GetInstance(ctx, id)
}

func TestLeaseReleaseFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.feed.set(101, withState(finished("f1", 10, 20, 0, 0), game.FixtureLive))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := lease.NewRedis(client, "test:")

	fs := &failRedisOnRead{Store: h.store, mr: mr}
	reg := rules.DefaultRegistry()
	eng := New(Deps{
		Store: fs, Feed: h.feed, Assigner: assign.New(fs, reg, nil), Rules: reg, Locker: locker,
	}, Config{LeaseTTL: time.Minute, StoreTimeout: time.Second})

	res, err := eng.Settle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.LeaseError == "" || !strings.Contains(res.Summary(), "lease_error=") {
		t.Fatalf("lease error not reported: %s", res.Summary())
	}

	// The stuck lease keeps the instance locked.
	mr.SetError("")
	if _, err := eng.Settle(context.Background(), "g1"); !errors.Is(err, game.ErrConcurrentSettlement) {
		t.Errorf("err = %v, want ErrConcurrentSettlement", err)
	}

	var sweep SchedulerResult
	sweep.record(res, nil)
	if sweep.LeaseErrors != 1 || len(sweep.Errors) != 1 {
		t.Errorf("sweep = %s errors = %v", sweep.Summary(), sweep.Errors)
	}
}

func TestPassIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "race-to-33")
	h.entry(t, "g1", "e1", 0, 10, 30)
	h.feed.set(101,
		finished("f1", 10, 20, 2, 1),
		withState(finished("f2", 30, 40, 0, 0), game.FixtureScheduled),
	)

	ctx := context.Background()
	first, err := h.engine.Settle(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != StatusPending || first.FixturesApplied != 1 || first.EntriesSkipped != 1 {
		t.Fatalf("first pass = %s", first.Summary())
	}
	writes := h.store.EntryWrites

	second, err := h.engine.Settle(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if second.FixturesApplied != 0 || h.store.EntryWrites != writes {
		t.Errorf("second pass re-applied: %s writes=%d", second.Summary(), h.store.EntryWrites)
	}
	if e := h.get(t, "e1"); e.Score != 2 {
		t.Errorf("score = %d, want 2", e.Score)
	}

	// The late fixture finishes; only it is applied.
	h.feed.set(101, finished("f1", 10, 20, 2, 1), finished("f2", 30, 40, 4, 0))
	third, err := h.engine.Settle(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if third.FixturesApplied != 1 || third.Status != StatusAdvanced {
		t.Errorf("third pass = %s", third.Summary())
	}
	if e := h.get(t, "e1"); e.Score != 6 {
		t.Errorf("score = %d, want 6", e.Score)
	}
}

func TestEveryoneEliminatedSharesWin(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.entry(t, "g1", "e2", 0, 30)
	h.feed.set(101, finished("f1", 10, 20, 0, 1), finished("f2", 30, 40, 1, 3))

	res, err := h.engine.Settle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("result = %s", res.Summary())
	}
	for _, id := range []string{"e1", "e2"} {
		e := h.get(t, id)
		if e.Status != game.EntryWon || e.EliminatedRound == nil {
			t.Errorf("%s = %+v", id, e)
		}
	}

	// Each entry is announced eliminated, then won when the round closes.
	want := []notify.EventType{
		notify.EntryEliminated, notify.EntryEliminated,
		notify.EntryWon, notify.EntryWon,
		notify.InstanceCompleted,
	}
	if got := h.sink.types(); !equalTypes(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestPostponedFixtureSurvives(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "idle", 0, 10)
	h.entry(t, "g1", "loser", 0, 30)
	h.feed.set(101,
		withState(finished("f1", 10, 20, 0, 0), game.FixturePostponed),
		finished("f2", 30, 40, 0, 1),
	)

	res, err := h.engine.Settle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCompleted || h.get(t, "idle").Status != game.EntryWon {
		t.Errorf("result = %s idle = %s", res.Summary(), h.get(t, "idle").Status)
	}
}

func TestUnassignableEntryBlocksRound(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.entry(t, "g1", "orphan", 0)

	// Knock every team out so the orphan cannot be assigned.
	ctx := context.Background()
	teams, _ := h.store.ListTeams(ctx, season)
	for i := range teams {
		teams[i].Eliminated = true
	}
	h.store.UpsertTeams(ctx, teams)
	h.feed.set(101, finished("f1", 10, 20, 1, 0))

	res, err := h.engine.Settle(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusPending || len(res.Errors) != 1 {
		t.Fatalf("result = %s errors = %v", res.Summary(), res.Errors)
	}
	if !errors.Is(res.Errors[0], game.ErrInsufficientTeamData) || res.Errors[0].EntryID != "orphan" {
		t.Errorf("entry error = %v", res.Errors[0])
	}
	if h.status(t, "g1") != game.InstanceActive {
		t.Error("round closed despite unassigned entry")
	}
}

type cancellingStore struct {
	*memory.Store
	writes int
}

// UpdateEntry lets the first write through, then cancels the instance.
func (s *cancellingStore) UpdateEntry(ctx context.Context, e game.Entry) error {
	s.writes++
	if s.writes == 2 {
		s.Store.UpdateInstance(ctx, e.InstanceID, func(in *game.Instance) error {
			in.Status = game.InstanceCancelled
			return nil
		})
	}
	return s.Store.UpdateEntry(ctx, e)
}

func TestCancellationStopsPass(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.entry(t, "g1", "e1", 0, 10)
	h.entry(t, "g1", "e2", 0, 30)
	h.feed.set(101, finished("f1", 10, 20, 0, 1), finished("f2", 30, 40, 0, 1))

	cs := &cancellingStore{Store: h.store}
	reg := rules.DefaultRegistry()
	eng := New(Deps{
		Store: cs, Feed: h.feed, Assigner: assign.New(cs, reg, nil), Rules: reg, Sink: h.sink,
	}, Config{})

	res, err := eng.Settle(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusCancelled {
		t.Fatalf("status = %s", res.Status)
	}
	if h.get(t, "e1").Status != game.EntryEliminated || h.get(t, "e2").Status != game.EntryActive {
		t.Errorf("e1 = %s e2 = %s", h.get(t, "e1").Status, h.get(t, "e2").Status)
	}
	if h.status(t, "g1") != game.InstanceCancelled {
		t.Errorf("instance = %s", h.status(t, "g1"))
	}
	// The committed elimination is still announced.
	if got := h.sink.types(); !equalTypes(got, []notify.EventType{notify.EntryEliminated}) {
		t.Errorf("events = %v", got)
	}
}

func TestInactiveInstanceIsNoOp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.store.CreateInstance(ctx, &game.Instance{ID: "g1", GameTypeSlug: "race-to-33", Status: game.InstanceOpen}); err != nil {
		t.Fatal(err)
	}
	res, err := h.engine.Settle(ctx, "g1")
	if err != nil || res.Status != StatusNoOp {
		t.Errorf("res = %s err = %v", res.Summary(), err)
	}
}

func TestUnknownGameType(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "golden-boot")
	if _, err := h.engine.Settle(context.Background(), "g1"); !errors.Is(err, rules.ErrUnknownGameType) {
		t.Errorf("err = %v", err)
	}
}

func TestRunActive(t *testing.T) {
	h := newHarness(t)
	h.instance(t, "g1", "last-man-standing")
	h.instance(t, "g2", "race-to-33")
	h.instance(t, "g3", "last-man-standing")
	h.entry(t, "g1", "a", 0, 10)
	h.entry(t, "g2", "b", 0, 30)
	h.entry(t, "g3", "c", 0, 50)
	h.entry(t, "g3", "d", 0, 70)
	h.feed.set(101,
		finished("f1", 10, 20, 1, 0),
		finished("f2", 30, 40, 0, 0),
		finished("f3", 50, 60, 1, 1),
		withState(finished("f4", 70, 80, 0, 0), game.FixtureLive),
	)

	// g3 is being settled elsewhere.
	held, err := h.locker.Acquire(context.Background(), lease.InstanceKey("g3"), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release(context.Background())

	res := h.engine.RunActive(context.Background(), 4)
	if res.InstancesFound != 3 || res.InstancesProcessed != 3 {
		t.Fatalf("summary = %s", res.Summary())
	}
	if res.Completed != 1 || res.Busy != 1 || res.RoundsClosed != 2 {
		t.Errorf("summary = %s errors = %s", res.Summary(), res.ErrorSummary(5))
	}
}

func equalTypes(a, b []notify.EventType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
