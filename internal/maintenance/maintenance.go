// Package maintenance runs the periodic housekeeping of the settlement
// database: expired leases, delivered events and the standings view. The
// schedule package drives these; each call is safe to repeat.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool maintenance needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Result tracks one cleanup run.
type Result struct {
	LeasesPurged int64
	EventsPurged int64
	Duration     time.Duration
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("leases=%d events=%d dur=%s",
		r.LeasesPurged, r.EventsPurged, r.Duration.Round(time.Millisecond))
}

// Cleanup removes expired settlement leases and sent or failed events older
// than retention.
func Cleanup(ctx context.Context, db DBTX, retention time.Duration, logger *slog.Logger) (Result, error) {
	start := time.Now()
	var result Result

	tag, err := db.Exec(ctx, `DELETE FROM settlement_leases WHERE expires_at < NOW()`)
	if err != nil {
		return result, fmt.Errorf("purge expired leases: %w", err)
	}
	result.LeasesPurged = tag.RowsAffected()

	tag, err = db.Exec(ctx, `
		DELETE FROM settlement_events
		WHERE status IN ('sent', 'failed')
		  AND updated_at < NOW() - make_interval(secs => $1)`, retention.Seconds())
	if err != nil {
		return result, fmt.Errorf("purge old events: %w", err)
	}
	result.EventsPurged = tag.RowsAffected()
	result.Duration = time.Since(start)

	if result.LeasesPurged+result.EventsPurged > 0 {
		logger.Info("Cleanup finished", "summary", result.Summary())
	}
	return result, nil
}

// RefreshStandings refreshes the standings view. Uses CONCURRENTLY so reads
// are not blocked during refresh. Call after each settlement sweep.
func RefreshStandings(ctx context.Context, db DBTX, logger *slog.Logger) error {
	views := []string{
		"mv_instance_standings",
	}

	for _, v := range views {
		start := time.Now()
		_, err := db.Exec(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", v))
		dur := time.Since(start).Round(time.Millisecond)

		if err != nil {
			logger.Warn("Failed to refresh materialized view",
				"view", v, "duration", dur, "error", err)
			return fmt.Errorf("refresh %s: %w", v, err)
		}
		logger.Debug("Refreshed materialized view", "view", v, "duration", dur)
	}
	return nil
}
