// Package db opens the Postgres pool the stores run on. It applies the schema
// before the pool opens and prepares every statement in Statements on each
// new connection, so callers pass statement names instead of SQL.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-games/internal/config"
)

// migrationLockID serialises schema changes when several processes start at
// once (api, worker, one-off CLI runs).
const migrationLockID = 0x5c07a_9a3e5

// Pool is the shared connection pool.
type Pool struct {
	*pgxpool.Pool
}

// New migrates the database, then opens and pings the pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	pc.MinConns = int32(cfg.DBPoolMinConns)
	pc.MaxConns = int32(cfg.DBPoolMaxConns)
	pc.MaxConnLifetime = cfg.DBPoolMaxLife
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.AfterConnect = prepare

	if err := migrate(ctx, pc.ConnConfig); err != nil {
		return nil, err
	}

	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: p}, nil
}

// HealthCheck runs the prepared no-op query.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var one int
	return p.QueryRow(ctx, "health_check").Scan(&one)
}

func migrate(ctx context.Context, cc *pgx.ConnConfig) error {
	conn, err := pgx.ConnectConfig(ctx, cc.Copy())
	if err != nil {
		return fmt.Errorf("connect for migrations: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("migration lock: %w", err)
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID)

	return Migrate(ctx, conn)
}

// Migrate applies the schema statements in order. Each one is idempotent, so
// re-running against an up-to-date database is a no-op.
func Migrate(ctx context.Context, conn *pgx.Conn) error {
	for i, stmt := range migrations {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

func prepare(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
