package settle

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Pass result
// --------------------------------------------------------------------------

// Status is how a settlement pass ended.
type Status string

const (
	StatusNoOp      Status = "noop"      // instance not ACTIVE or has no current round
	StatusAborted   Status = "aborted"   // feed unavailable, nothing mutated
	StatusCancelled Status = "cancelled" // instance cancelled mid-pass
	StatusPending   Status = "pending"   // fixtures applied, round still open
	StatusAdvanced  Status = "advanced"
	StatusCompleted Status = "completed"
)

// EntryError is a failure confined to one entry.
type EntryError struct {
	EntryID   string
	FixtureID string
	Err       error
}

func (e EntryError) Error() string {
	if e.FixtureID == "" {
		return fmt.Sprintf("entry %s: %v", e.EntryID, e.Err)
	}
	return fmt.Sprintf("entry %s fixture %s: %v", e.EntryID, e.FixtureID, e.Err)
}

func (e EntryError) Unwrap() error { return e.Err }

// PassResult tracks the outcome of settling one instance.
type PassResult struct {
	InstanceID string
	Status     Status
	Round      int
	NextRound  int

	EntriesConsidered int
	EntriesSkipped    int // waiting on a scheduled or live fixture
	EntriesFailed     int
	FixturesApplied   int
	Assigned          int
	Shortfalls        int

	Eliminated int
	Won        int
	Lost       int

	EventsEmitted int
	SinkError     string
	LeaseError    string // release failed; the instance stays locked until the TTL lapses

	Errors   []EntryError
	Duration time.Duration
}

// RoundClosed reports whether the pass closed the current round.
func (r *PassResult) RoundClosed() bool {
	return r.Status == StatusAdvanced || r.Status == StatusCompleted
}

func (r *PassResult) addEntryError(entryID, fixtureID string, err error) {
	r.Errors = append(r.Errors, EntryError{EntryID: entryID, FixtureID: fixtureID, Err: err})
}

// Summary returns a human-readable summary.
func (r *PassResult) Summary() string {
	s := fmt.Sprintf(
		"instance=%s status=%s round=%d entries=%d skipped=%d failed=%d applied=%d eliminated=%d won=%d lost=%d events=%d dur=%s",
		r.InstanceID, r.Status, r.Round, r.EntriesConsidered, r.EntriesSkipped,
		r.EntriesFailed, r.FixturesApplied, r.Eliminated, r.Won, r.Lost,
		r.EventsEmitted, r.Duration.Round(time.Millisecond))
	if r.LeaseError != "" {
		s += " lease_error=" + strconv.Quote(r.LeaseError)
	}
	return s
}

// --------------------------------------------------------------------------
// Scheduler result
// --------------------------------------------------------------------------

// SchedulerResult tracks the outcome of a sweep over every ACTIVE instance.
type SchedulerResult struct {
	InstancesFound     int
	InstancesProcessed int
	RoundsClosed       int
	Completed          int
	Busy               int
	Aborted            int
	Failed             int
	LeaseErrors        int
	Duration           time.Duration
	Errors             []string
	Results            []PassResult
}

// Summary returns a human-readable summary.
func (r *SchedulerResult) Summary() string {
	return fmt.Sprintf(
		"found=%d processed=%d rounds_closed=%d completed=%d busy=%d aborted=%d failed=%d lease_errors=%d dur=%s",
		r.InstancesFound, r.InstancesProcessed, r.RoundsClosed, r.Completed,
		r.Busy, r.Aborted, r.Failed, r.LeaseErrors, r.Duration.Round(time.Second))
}

// ErrorSummary joins the collected errors, truncated to limit entries.
func (r *SchedulerResult) ErrorSummary(limit int) string {
	if len(r.Errors) <= limit {
		return strings.Join(r.Errors, "; ")
	}
	return strings.Join(r.Errors[:limit], "; ") + fmt.Sprintf("; ... (%d more)", len(r.Errors)-limit)
}
