// Package seed syncs the reference data settlement relies on (a season's
// teams and its round calendar) from the fixture feed into the store.
package seed

import (
	"errors"
	"fmt"
)

// Result counts what one sync fetched and wrote. A sync keeps going after a
// failed stage, so Errors may hold several entries.
type Result struct {
	TeamsFetched   int
	TeamsUpserted  int
	RoundsFetched  int
	RoundsUpserted int
	Errors         []error
}

// Add folds another run into r, e.g. one per season in a calendar sync.
func (r *Result) Add(o Result) {
	r.TeamsFetched += o.TeamsFetched
	r.TeamsUpserted += o.TeamsUpserted
	r.RoundsFetched += o.RoundsFetched
	r.RoundsUpserted += o.RoundsUpserted
	r.Errors = append(r.Errors, o.Errors...)
}

func (r *Result) fail(stage string, err error) {
	r.Errors = append(r.Errors, fmt.Errorf("%s: %w", stage, err))
}

// Err joins every recorded failure, or returns nil.
func (r *Result) Err() error {
	return errors.Join(r.Errors...)
}

func (r *Result) Summary() string {
	return fmt.Sprintf("teams=%d/%d rounds=%d/%d errors=%d",
		r.TeamsUpserted, r.TeamsFetched, r.RoundsUpserted, r.RoundsFetched, len(r.Errors))
}
