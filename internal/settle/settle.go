// Package settle runs settlement passes: for an ACTIVE game instance it pulls
// the current round's fixtures, applies final results to every live entry
// through the game type's rules, closes the round once nothing is pending,
// and emits the resulting notifications.
//
// A pass is idempotent. Each (entry, fixture) pair is applied at most once,
// so re-running a pass after a crash or a timeout converges on the same
// state. The package does not log; callers inspect PassResult.
package settle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/albapepper/scoracle-games/internal/assign"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/lease"
	"github.com/albapepper/scoracle-games/internal/lifecycle"
	"github.com/albapepper/scoracle-games/internal/notify"
	"github.com/albapepper/scoracle-games/internal/rules"
	"github.com/albapepper/scoracle-games/internal/store"
)

// --------------------------------------------------------------------------
// Dependencies
// --------------------------------------------------------------------------

// Store is the persistence a pass needs.
type Store interface {
	GetInstance(ctx context.Context, id string) (*game.Instance, error)
	ListInstances(ctx context.Context, status game.InstanceStatus) ([]game.Instance, error)
	ListEntries(ctx context.Context, instanceID string) ([]game.Entry, error)
	UpdateEntry(ctx context.Context, e game.Entry) error
	CloseRound(ctx context.Context, instanceID string, c store.RoundClosure) (*game.Instance, error)
}

// Feed supplies fixtures and the season calendar.
type Feed interface {
	FetchRoundFixtures(ctx context.Context, roundID int64) ([]game.Fixture, error)
	FetchRounds(ctx context.Context, seasonID int64) ([]game.Round, error)
}

// Assigner hands out teams to entries that lack a pick.
type Assigner interface {
	Fill(ctx context.Context, in *game.Instance, e game.Entry) (game.Entry, assign.Assignment, error)
	AssignNextRound(ctx context.Context, in *game.Instance, e game.Entry) (game.Entry, assign.Assignment, error)
}

// Deps holds everything the engine talks to.
type Deps struct {
	Store    Store
	Feed     Feed
	Assigner Assigner
	Rules    *rules.Registry
	Locker   lease.Locker
	Sink     notify.Sink
}

// Config bounds a pass.
type Config struct {
	LeaseTTL     time.Duration // also the deadline of the whole pass
	StoreTimeout time.Duration // per store call
}

const (
	DefaultLeaseTTL     = 2 * time.Minute
	DefaultStoreTimeout = 10 * time.Second
)

// Engine settles game instances.
type Engine struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

// New creates an engine. Missing Sink and Locker default to Discard and an
// in-process lock.
func New(deps Deps, cfg Config) *Engine {
	if deps.Sink == nil {
		deps.Sink = notify.Discard{}
	}
	if deps.Locker == nil {
		deps.Locker = lease.NewMemory()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	return &Engine{deps: deps, cfg: cfg, now: time.Now}
}

// --------------------------------------------------------------------------
// Settle
// --------------------------------------------------------------------------

// Settle runs one pass over an instance. The returned error is pass-level:
// game.ErrConcurrentSettlement, game.ErrFeedUnavailable, rules.ErrUnknownGameType
// or a store failure. Entry-level failures are in PassResult.Errors.
func (e *Engine) Settle(ctx context.Context, instanceID string) (res PassResult, err error) {
	start := e.now()
	res.InstanceID = instanceID
	defer func() { res.Duration = e.now().Sub(start) }()

	l, err := e.deps.Locker.Acquire(ctx, lease.InstanceKey(instanceID), e.cfg.LeaseTTL)
	if err != nil {
		return res, err
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StoreTimeout)
		defer cancel()
		if rerr := l.Release(rctx); rerr != nil {
			res.LeaseError = rerr.Error()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.LeaseTTL)
	defer cancel()

	p := &pass{engine: e, res: &res}
	err = p.run(ctx, instanceID)

	// Whatever committed gets announced, even when the pass stopped early or
	// its context is already gone.
	if len(p.events) > 0 {
		res.EventsEmitted = len(p.events)
		pctx, pcancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StoreTimeout)
		defer pcancel()
		if serr := e.deps.Sink.Publish(pctx, p.events); serr != nil {
			res.SinkError = serr.Error()
		}
	}
	return res, err
}

// pass is the state of one Settle call.
type pass struct {
	engine   *Engine
	res      *PassResult
	in       *game.Instance
	strategy rules.Strategy
	events   []notify.Event
}

func (p *pass) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.engine.cfg.StoreTimeout)
}

func (p *pass) run(ctx context.Context, instanceID string) error {
	deps := p.engine.deps

	sctx, cancel := p.storeCtx(ctx)
	in, err := deps.Store.GetInstance(sctx, instanceID)
	cancel()
	if err != nil {
		return err
	}
	p.in = in

	if in.Status != game.InstanceActive || in.CurrentRound == nil {
		p.res.Status = StatusNoOp
		return nil
	}
	p.res.Round = in.CurrentRound.Ordinal

	strategy, err := deps.Rules.Strategy(in.GameTypeSlug)
	if err != nil {
		return fmt.Errorf("instance %s: %w", instanceID, err)
	}
	p.strategy = strategy

	fixtures, err := deps.Feed.FetchRoundFixtures(ctx, in.CurrentRound.ID)
	if err != nil {
		p.res.Status = StatusAborted
		return fmt.Errorf("instance %s round %d: %w", instanceID, in.CurrentRound.Ordinal, err)
	}
	// The calendar decides how the round closes. Fetch it before any write so
	// a feed failure leaves every entry untouched.
	rounds, err := deps.Feed.FetchRounds(ctx, in.SeasonID)
	if err != nil {
		p.res.Status = StatusAborted
		return fmt.Errorf("instance %s season %d calendar: %w", instanceID, in.SeasonID, err)
	}

	sctx, cancel = p.storeCtx(ctx)
	entries, err := deps.Store.ListEntries(sctx, instanceID)
	cancel()
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	blocked := false
	for i := range entries {
		if entries[i].Status != game.EntryActive {
			continue
		}
		if err := ctx.Err(); err != nil {
			p.res.Status = StatusPending
			return fmt.Errorf("instance %s round %d: %w", instanceID, in.CurrentRound.Ordinal, err)
		}
		p.res.EntriesConsidered++

		updated, resolved, err := p.settleEntry(ctx, entries[i], fixtures)
		entries[i] = updated
		if errors.Is(err, game.ErrInstanceCancelled) {
			p.res.Status = StatusCancelled
			return nil
		}
		if !resolved {
			blocked = true
		}
	}

	if blocked {
		p.res.Status = StatusPending
		return nil
	}
	return p.closeRound(ctx, entries, rounds)
}

// settleEntry applies every final, unapplied fixture of the entry's teams.
// resolved is false while the entry still waits on a fixture or failed.
func (p *pass) settleEntry(ctx context.Context, e game.Entry, fixtures []game.Fixture) (game.Entry, bool, error) {
	round := p.in.CurrentRound.Ordinal

	if p.needsAssignment(e) {
		var (
			updated game.Entry
			a       assign.Assignment
			err     error
		)
		if len(e.AssignedTeamIDs) == 0 {
			updated, a, err = p.engine.deps.Assigner.Fill(ctx, p.in, e)
		} else {
			updated, a, err = p.engine.deps.Assigner.AssignNextRound(ctx, p.in, e)
		}
		if a.Shortfall > 0 {
			p.res.Shortfalls++
		}
		if err != nil {
			if !errors.Is(err, game.ErrInstanceCancelled) {
				p.res.EntriesFailed++
				p.res.addEntryError(e.ID, "", err)
			}
			return e, false, err
		}
		p.res.Assigned++
		e = updated
	}

	relevant := p.relevantFixtures(e, fixtures)

	pending := false
	for _, f := range relevant {
		switch f.State {
		case game.FixtureScheduled, game.FixtureLive:
			pending = true
			continue
		case game.FixturePostponed:
			// Counts as survival and scores nothing.
			continue
		}
		if e.HasApplied(f.ExternalID) {
			continue
		}

		out, err := p.strategy.Apply(e, f)
		if err != nil {
			p.res.EntriesFailed++
			p.res.addEntryError(e.ID, f.ExternalID, err)
			return e, false, err
		}
		if out.AlreadyApplied {
			continue
		}
		if out.Entry.Status == game.EntryEliminated {
			r := round
			out.Entry.EliminatedRound = &r
		}

		sctx, cancel := p.storeCtx(ctx)
		err = p.engine.deps.Store.UpdateEntry(sctx, out.Entry)
		cancel()
		if err != nil {
			if !errors.Is(err, game.ErrInstanceCancelled) {
				p.res.EntriesFailed++
				p.res.addEntryError(e.ID, f.ExternalID, err)
			}
			return e, false, err
		}

		p.res.FixturesApplied++
		e = out.Entry
		if out.StatusChanged() {
			p.entryEvent(e)
		}
		if e.Status.Terminal() {
			return e, true, nil
		}
	}

	if pending {
		p.res.EntriesSkipped++
		return e, false, nil
	}
	return e, true, nil
}

func (p *pass) needsAssignment(e game.Entry) bool {
	if p.strategy.Kind() == rules.KindElimination {
		return e.NeedsPick(p.in.CurrentRound.Ordinal, p.in.StartRound)
	}
	return len(e.AssignedTeamIDs) == 0
}

// relevantFixtures returns the fixtures involving the entry's live teams in
// kickoff order. Elimination only plays the current pick.
func (p *pass) relevantFixtures(e game.Entry, fixtures []game.Fixture) []game.Fixture {
	var teams []int64
	if p.strategy.Kind() == rules.KindElimination {
		if t, ok := e.CurrentTeam(); ok {
			teams = []int64{t}
		}
	} else {
		teams = e.AssignedTeamIDs
	}

	var out []game.Fixture
	for _, f := range fixtures {
		if slices.ContainsFunc(teams, f.Involves) {
			out = append(out, f)
		}
	}
	slices.SortStableFunc(out, func(a, b game.Fixture) int { return a.KickoffAt.Compare(b.KickoffAt) })
	return out
}

// --------------------------------------------------------------------------
// Round close
// --------------------------------------------------------------------------

func (p *pass) closeRound(ctx context.Context, entries []game.Entry, rounds []game.Round) error {
	deps := p.engine.deps
	round := p.in.CurrentRound.Ordinal

	next, hasNext := game.NextRound(rounds, round)
	hasNext = hasNext && p.in.WithinEnd(next.Ordinal)

	verdict := p.strategy.CloseRound(rules.RoundClose{Round: round, Entries: entries, HasNext: hasNext})

	closure := store.RoundClosure{
		Won:  verdict.Won,
		Lost: verdict.Lost,
		Transition: func(cur *game.Instance) error {
			if verdict.Complete {
				return lifecycle.Complete(cur)
			}
			return lifecycle.AdvanceRound(cur, next)
		},
	}

	sctx, cancel := p.storeCtx(ctx)
	updated, err := deps.Store.CloseRound(sctx, p.in.ID, closure)
	cancel()
	if errors.Is(err, game.ErrInstanceCancelled) {
		p.res.Status = StatusCancelled
		return nil
	}
	if err != nil {
		p.res.Status = StatusPending
		return fmt.Errorf("instance %s close round %d: %w", p.in.ID, round, err)
	}
	p.in = updated

	byID := make(map[string]*game.Entry, len(entries))
	for i := range entries {
		byID[entries[i].ID] = &entries[i]
	}
	for _, id := range verdict.Won {
		if e, ok := byID[id]; ok {
			e.Status = game.EntryWon
			p.entryEvent(*e)
		}
	}
	for _, id := range verdict.Lost {
		if e, ok := byID[id]; ok {
			e.Status = game.EntryLost
			p.entryEvent(*e)
		}
	}

	if verdict.Complete {
		p.res.Status = StatusCompleted
		var winners []string
		for _, e := range entries {
			if e.Status == game.EntryWon {
				winners = append(winners, e.ID)
			}
		}
		ev := notify.NewEvent(notify.InstanceCompleted, p.in.ID)
		ev.Round = round
		ev.Data = map[string]any{"winners": winners, "game_type": p.in.GameTypeSlug}
		p.events = append(p.events, ev)
		return nil
	}

	p.res.Status = StatusAdvanced
	p.res.NextRound = next.Ordinal
	ev := notify.NewEvent(notify.InstanceRoundAdvanced, p.in.ID)
	ev.Round = next.Ordinal
	ev.Data = map[string]any{"previous_round": round, "round_id": next.ExternalID}
	p.events = append(p.events, ev)

	// Survivors need their pick for the new round. Failures are retried by
	// the next pass, which blocks the round until every entry has a pick.
	if p.strategy.Kind() == rules.KindElimination {
		for _, e := range entries {
			if e.Status != game.EntryActive {
				continue
			}
			_, a, err := deps.Assigner.AssignNextRound(ctx, p.in, e)
			if a.Shortfall > 0 {
				p.res.Shortfalls++
			}
			if err != nil {
				p.res.addEntryError(e.ID, "", err)
				continue
			}
			p.res.Assigned++
		}
	}
	return nil
}

func (p *pass) entryEvent(e game.Entry) {
	var t notify.EventType
	switch e.Status {
	case game.EntryEliminated:
		t = notify.EntryEliminated
		p.res.Eliminated++
	case game.EntryWon:
		t = notify.EntryWon
		p.res.Won++
	case game.EntryLost:
		t = notify.EntryLost
		p.res.Lost++
	default:
		return
	}
	ev := notify.NewEvent(t, e.InstanceID)
	ev.EntryID = e.ID
	ev.UserID = e.UserID
	ev.Round = p.in.CurrentRound.Ordinal
	ev.Data = map[string]any{"score": e.Score, "teams": e.AssignedTeamIDs}
	p.events = append(p.events, ev)
}
