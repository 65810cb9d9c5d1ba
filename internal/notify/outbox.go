package notify

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Channel is the pg_notify channel the outbox signals on after an insert.
const Channel = "settlement_events"

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Outbox is the durable Sink. Events land in settlement_events in one
// transaction together with a NOTIFY, so the dispatcher wakes only once the
// rows are visible.
type Outbox struct {
	db TxBeginner
}

// NewOutbox creates an outbox sink.
func NewOutbox(db TxBeginner) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Publish(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := o.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.ID, err)
		}
		batch.Queue(`
			INSERT INTO settlement_events (
				id, event_type, game_instance_id, entry_id, payload, status, occurred_at
			) VALUES ($1, $2, $3, NULLIF($4, ''), $5, 'pending', $6)
			ON CONFLICT (id) DO NOTHING`,
			e.ID, string(e.Type), e.InstanceID, e.EntryID, payload, e.OccurredAt,
		)
	}
	batch.Queue("SELECT pg_notify($1, $2)", Channel, events[0].InstanceID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert settlement events: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit outbox tx: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Postgres event queue
// --------------------------------------------------------------------------

// Claimed is an outbox row taken for delivery.
type Claimed struct {
	Seq      int64
	Attempts int
	Event    Event
}

// DBTX is the query surface of *pgxpool.Pool.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgQueue reads the outbox for the dispatcher.
type PgQueue struct {
	db         DBTX
	staleAfter time.Duration
}

// NewPgQueue creates a queue over settlement_events. Rows stuck in
// 'sending' longer than staleAfter are claimed again.
func NewPgQueue(db DBTX, staleAfter time.Duration) *PgQueue {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &PgQueue{db: db, staleAfter: staleAfter}
}

// ClaimDue atomically claims a batch of undelivered events in insertion
// order. FOR UPDATE SKIP LOCKED lets several dispatchers share the table.
func (q *PgQueue) ClaimDue(ctx context.Context, limit int, maxAttempts int) ([]Claimed, error) {
	rows, err := q.db.Query(ctx, `
		UPDATE settlement_events
		SET status = 'sending', attempts = attempts + 1, updated_at = NOW()
		WHERE seq IN (
			SELECT seq FROM settlement_events
			WHERE (status = 'pending'
			       OR (status = 'sending' AND updated_at < NOW() - make_interval(secs => $3)))
			  AND attempts < $2
			ORDER BY seq
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING seq, attempts, payload`,
		limit, maxAttempts, q.staleAfter.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("claim due events: %w", err)
	}
	defer rows.Close()

	var claimed []Claimed
	for rows.Next() {
		var (
			c       Claimed
			payload []byte
		)
		if err := rows.Scan(&c.Seq, &c.Attempts, &payload); err != nil {
			return nil, fmt.Errorf("scan claimed: %w", err)
		}
		if err := json.Unmarshal(payload, &c.Event); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", c.Seq, err)
		}
		claimed = append(claimed, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// RETURNING does not preserve the subquery order.
	slices.SortFunc(claimed, func(a, b Claimed) int { return cmp.Compare(a.Seq, b.Seq) })
	return claimed, nil
}

// MarkSent marks events as delivered.
func (q *PgQueue) MarkSent(ctx context.Context, seqs []int64) error {
	_, err := q.db.Exec(ctx, `
		UPDATE settlement_events SET status = 'sent', sent_at = NOW(), updated_at = NOW()
		WHERE seq = ANY($1)`, seqs)
	return err
}

// MarkFailed returns events to the queue, or parks them as failed once
// they have used up their attempts.
func (q *PgQueue) MarkFailed(ctx context.Context, seqs []int64, reason string, maxAttempts int) error {
	_, err := q.db.Exec(ctx, `
		UPDATE settlement_events
		SET status = CASE WHEN attempts >= $3 THEN 'failed' ELSE 'pending' END,
		    last_error = $2, updated_at = NOW()
		WHERE seq = ANY($1)`, seqs, reason, maxAttempts)
	return err
}
