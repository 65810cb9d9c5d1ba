package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/albapepper/scoracle-games/internal/api/handler"
	"github.com/albapepper/scoracle-games/internal/assign"
	"github.com/albapepper/scoracle-games/internal/cache"
	"github.com/albapepper/scoracle-games/internal/config"
	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/lifecycle"
	"github.com/albapepper/scoracle-games/internal/notify"
	"github.com/albapepper/scoracle-games/internal/rules"
	"github.com/albapepper/scoracle-games/internal/settle"
	"github.com/albapepper/scoracle-games/internal/store/memory"
)

type fakeSettler struct {
	res settle.PassResult
	err error
}

func (f *fakeSettler) Settle(_ context.Context, id string) (settle.PassResult, error) {
	r := f.res
	r.InstanceID = id
	return r, f.err
}

type staticRounds []game.Round

func (s staticRounds) FetchRounds(context.Context, int64) ([]game.Round, error) { return s, nil }

type testServer struct {
	srv     *httptest.Server
	store   *memory.Store
	settler *fakeSettler
	cache   *cache.Cache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	st.UpsertTeams(ctx, []game.Team{{ID: 1, SeasonID: 5, Name: "A"}, {ID: 2, SeasonID: 5, Name: "B"}})
	st.CreateInstance(ctx, &game.Instance{ID: "g1", GameTypeSlug: "last-man-standing", Status: game.InstanceOpen, SeasonID: 5})

	reg := rules.DefaultRegistry()
	ts := &testServer{store: st, settler: &fakeSettler{}, cache: cache.New(true)}
	deps := handler.Deps{
		Store:     st,
		Settler:   ts.settler,
		Lifecycle: lifecycle.NewManager(st, staticRounds{{ExternalID: 300, SeasonID: 5, Ordinal: 1}}),
		Enroller:  assign.New(st, reg, rand.NewPCG(1, 2)),
		GameTypes: reg.Slugs(),
		Cache:     ts.cache,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	ts.srv = httptest.NewServer(NewRouter(deps, &config.Config{CORSAllowOrigins: []string{"*"}}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header ...string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestEnrollFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/entries", map[string]string{"user_id": "alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enroll status = %d", resp.StatusCode)
	}
	got := decode[handler.EnrollResponse](t, resp)
	if got.Entry == nil || got.Entry.UserID != "alice" || len(got.Entry.AssignedTeamIDs) != 1 || got.Warning != "" {
		t.Fatalf("enroll = %+v", got)
	}

	if resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/entries", map[string]string{"user_id": "alice"}); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate enroll status = %d, want 409", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/entries", map[string]string{}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing user status = %d, want 400", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/v1/instances/nope/entries", map[string]string{"user_id": "bob"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown instance status = %d, want 404", resp.StatusCode)
	}

	list := decode[[]game.Entry](t, ts.do(t, http.MethodGet, "/api/v1/instances/g1/entries", nil))
	if len(list) != 1 {
		t.Errorf("entries = %d", len(list))
	}
}

func TestStandingsETag(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/instances/g1/entries", map[string]string{"user_id": "alice"})

	first := ts.do(t, http.MethodGet, "/api/v1/instances/g1/standings", nil)
	if first.StatusCode != http.StatusOK || first.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("first: status=%d cache=%s", first.StatusCode, first.Header.Get("X-Cache"))
	}
	etag := first.Header.Get("ETag")
	if etag == "" {
		t.Fatal("no ETag")
	}

	again := ts.do(t, http.MethodGet, "/api/v1/instances/g1/standings", nil, "If-None-Match", etag)
	if again.StatusCode != http.StatusNotModified {
		t.Errorf("revalidate status = %d, want 304", again.StatusCode)
	}

	// A new entry invalidates the cached leaderboard.
	ts.do(t, http.MethodPost, "/api/v1/instances/g1/entries", map[string]string{"user_id": "bob"})
	fresh := ts.do(t, http.MethodGet, "/api/v1/instances/g1/standings", nil, "If-None-Match", etag)
	if fresh.StatusCode != http.StatusOK || fresh.Header.Get("ETag") == etag {
		t.Errorf("after enroll: status=%d etag=%s", fresh.StatusCode, fresh.Header.Get("ETag"))
	}
	if rows := decode[[]map[string]any](t, fresh); len(rows) != 2 {
		t.Errorf("standings rows = %d", len(rows))
	}
}

func TestLifecycleRoutes(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/activate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d", resp.StatusCode)
	}
	in := decode[game.Instance](t, resp)
	if in.Status != game.InstanceActive || in.CurrentRound == nil || in.CurrentRound.ID != 300 {
		t.Errorf("activated = %+v", in)
	}

	if resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/activate", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("re-activate status = %d, want 409", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/entries", map[string]string{"user_id": "late"}); resp.StatusCode != http.StatusConflict {
		t.Errorf("late enroll status = %d, want 409", resp.StatusCode)
	}
	if resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/cancel", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("cancel status = %d", resp.StatusCode)
	}

	got := decode[game.Instance](t, ts.do(t, http.MethodGet, "/api/v1/instances/g1", nil))
	if got.Status != game.InstanceCancelled {
		t.Errorf("status = %s", got.Status)
	}
}

func TestSettleRoute(t *testing.T) {
	tests := []struct {
		name   string
		res    settle.PassResult
		err    error
		status int
	}{
		{"advanced", settle.PassResult{Status: settle.StatusAdvanced, Round: 1, NextRound: 2}, nil, http.StatusOK},
		{"busy", settle.PassResult{}, fmt.Errorf("lease: %w", game.ErrConcurrentSettlement), http.StatusConflict},
		{"feed down", settle.PassResult{Status: settle.StatusAborted}, fmt.Errorf("round 1: %w", game.ErrFeedUnavailable), http.StatusServiceUnavailable},
		{"unknown type", settle.PassResult{}, fmt.Errorf("x: %w", rules.ErrUnknownGameType), http.StatusUnprocessableEntity},
		{"missing", settle.PassResult{}, game.ErrInstanceNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.settler.res, ts.settler.err = tt.res, tt.err

			resp := ts.do(t, http.MethodPost, "/api/v1/instances/g1/settle", nil)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.err == nil {
				pr := decode[handler.PassResponse](t, resp)
				if pr.InstanceID != "g1" || pr.Status != "advanced" || pr.NextRound != 2 {
					t.Errorf("pass = %+v", pr)
				}
			}
		})
	}
}

func TestCreateInstance(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/v1/instances", map[string]any{
		"name": "Spring", "game_type": "Race to 33", "season_id": 5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	in := decode[game.Instance](t, resp)
	if in.GameTypeSlug != "race-to-33" || in.Status != game.InstanceOpen || in.ID == "" {
		t.Errorf("created = %+v", in)
	}

	bad := ts.do(t, http.MethodPost, "/api/v1/instances", map[string]any{"game_type": "Hot Potato", "season_id": 5})
	if bad.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown game type status = %d", bad.StatusCode)
	}

	open := decode[[]game.Instance](t, ts.do(t, http.MethodGet, "/api/v1/instances?status=open", nil))
	if len(open) != 2 {
		t.Errorf("open instances = %d", len(open))
	}
	if resp := ts.do(t, http.MethodGet, "/api/v1/instances?status=weird", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status filter = %d", resp.StatusCode)
	}
}

func TestCacheInvalidator(t *testing.T) {
	c := cache.New(true)
	c.Set(handler.InstanceCachePrefix("g1")+"standings", []byte("[]"), time.Minute)
	c.Set(handler.InstanceCachePrefix("g10")+"standings", []byte("[]"), time.Minute)

	ev := notify.NewEvent(notify.EntryEliminated, "g1")
	if err := (CacheInvalidator{Cache: c}).Publish(context.Background(), []notify.Event{ev, ev}); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := c.Get(handler.InstanceCachePrefix("g1") + "standings"); ok {
		t.Error("g1 still cached")
	}
	if _, _, ok := c.Get(handler.InstanceCachePrefix("g10") + "standings"); !ok {
		t.Error("g10 dropped")
	}
}

func TestRateLimiter(t *testing.T) {
	l := newIPLimiter(2, time.Minute)
	now := time.Now()
	if !l.allow("1.2.3.4", now) {
		t.Fatal("first request limited")
	}
	if l.allow("1.2.3.4", now) {
		t.Error("burst of 1 allowed a second request")
	}
	if !l.allow("5.6.7.8", now) {
		t.Error("other client limited")
	}

	// Idle clients are forgotten once another client shows up.
	l.allow("9.9.9.9", now.Add(4*time.Minute))
	if _, ok := l.visitors["1.2.3.4"]; ok {
		t.Error("idle visitor kept")
	}
}
