package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool the Postgres locker uses.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres is a Locker backed by the settlement_leases table. The upsert only
// overwrites a row whose lease has expired.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a Postgres-backed locker.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

const acquireLeaseSQL = `
INSERT INTO settlement_leases (lease_key, token, expires_at)
VALUES ($1, $2, NOW() + make_interval(secs => $3))
ON CONFLICT (lease_key) DO UPDATE
    SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
    WHERE settlement_leases.expires_at < NOW()
RETURNING expires_at`

const releaseLeaseSQL = `DELETE FROM settlement_leases WHERE lease_key = $1 AND token = $2`

func (p *Postgres) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := newToken()

	var expires time.Time
	err := p.db.QueryRow(ctx, acquireLeaseSQL, key, token, ttl.Seconds()).Scan(&expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, held(key)
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring lease %s: %w", key, err)
	}

	return &Lease{
		Key:       key,
		Token:     token,
		ExpiresAt: expires,
		release: func(ctx context.Context) error {
			if _, err := p.db.Exec(ctx, releaseLeaseSQL, key, token); err != nil {
				return fmt.Errorf("releasing lease %s: %w", key, err)
			}
			return nil
		},
	}, nil
}
