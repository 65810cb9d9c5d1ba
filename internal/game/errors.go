package game

import "errors"

// Engine errors. Callers match them with errors.Is; call sites wrap them with
// context via fmt.Errorf("...: %w", err).
var (
	// ErrFeedUnavailable means the fixture provider failed or timed out.
	// Always retryable; aborts the pass for one instance only.
	ErrFeedUnavailable = errors.New("fixture feed unavailable")

	// ErrInsufficientTeamData means zero eligible teams exist for an assignment.
	ErrInsufficientTeamData = errors.New("insufficient team data")

	// ErrConcurrentSettlement means another pass holds the instance lease.
	ErrConcurrentSettlement = errors.New("concurrent settlement in progress")

	// ErrInvalidTransition is a lifecycle change violating monotonicity.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	ErrInstanceNotFound  = errors.New("game instance not found")
	ErrEntryNotFound     = errors.New("user entry not found")
	ErrDuplicateEntry    = errors.New("user already has an entry for this game instance")
	ErrInstanceNotOpen   = errors.New("game instance is not accepting entries")
	ErrInstanceCancelled = errors.New("game instance was cancelled")
)

// IsNotFound checks if an error is a not-found type error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound) || errors.Is(err, ErrEntryNotFound)
}

// Retryable reports whether the caller should back off and try again later.
func Retryable(err error) bool {
	return errors.Is(err, ErrFeedUnavailable) || errors.Is(err, ErrConcurrentSettlement)
}
