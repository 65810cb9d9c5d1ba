// Package postgres implements store.Store on pgx. Queries use the statements
// prepared by package db, so the pool must come from db.New.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/scoracle-games/internal/game"
	"github.com/albapepper/scoracle-games/internal/store"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store is the Postgres store.
type Store struct {
	db DB
}

var _ store.Store = (*Store)(nil)

// New creates a store over a pool.
func New(db DB) *Store {
	return &Store{db: db}
}

// --------------------------------------------------------------------------
// Instances
// --------------------------------------------------------------------------

func (s *Store) GetInstance(ctx context.Context, id string) (*game.Instance, error) {
	in, err := scanInstance(s.db.QueryRow(ctx, "instance_get", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("instance %s: %w", id, game.ErrInstanceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get instance %s: %w", id, err)
	}
	return in, nil
}

func (s *Store) ListInstances(ctx context.Context, status game.InstanceStatus) ([]game.Instance, error) {
	rows, err := s.db.Query(ctx, "instance_list", string(status))
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var out []game.Instance
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (s *Store) CreateInstance(ctx context.Context, in *game.Instance) error {
	roundID, roundOrd := splitRound(in.CurrentRound)
	status := in.Status
	if status == "" {
		status = game.InstanceOpen
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO game_instances (id, name, game_type_slug, status, season_id, current_round_id,
			current_round_ordinal, start_round, end_round, entry_fee, entry_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		in.ID, in.Name, in.GameTypeSlug, string(status), in.SeasonID, roundID, roundOrd,
		in.StartRound, in.EndRound, in.EntryFee, in.EntryDeadline,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create instance %s: %w", in.ID, err)
	}
	in.Status = status
	return nil
}

func (s *Store) UpdateInstance(ctx context.Context, id string, mutate func(*game.Instance) error) (*game.Instance, error) {
	var out *game.Instance
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		in, err := lockInstance(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(in); err != nil {
			return err
		}
		if err := writeInstance(ctx, tx, in); err != nil {
			return err
		}
		out = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Entries
// --------------------------------------------------------------------------

func (s *Store) GetEntry(ctx context.Context, id string) (*game.Entry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx, "entry_get", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", id, game.ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, instanceID string) ([]game.Entry, error) {
	rows, err := s.db.Query(ctx, "entry_list", instanceID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []game.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) CreateEntry(ctx context.Context, e *game.Entry) error {
	if e.Status == "" {
		e.Status = game.EntryActive
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO user_entries (id, user_id, game_instance_id, status, assigned_team_ids,
			pick_round, score, applied_fixtures, eliminated_round)
		SELECT $1, $2, $3, $4, COALESCE($5::bigint[], '{}'), $6, $7, COALESCE($8::text[], '{}'), $9
		WHERE EXISTS (SELECT 1 FROM game_instances WHERE id = $3)
		ON CONFLICT (user_id, game_instance_id) DO NOTHING
		RETURNING created_at, updated_at`,
		e.ID, e.UserID, e.InstanceID, string(e.Status), e.AssignedTeamIDs,
		e.PickRound, e.Score, e.AppliedFixtures, e.EliminatedRound,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the instance is missing or the user already entered.
		if _, gerr := s.GetInstance(ctx, e.InstanceID); gerr != nil {
			return gerr
		}
		return fmt.Errorf("user %s instance %s: %w", e.UserID, e.InstanceID, game.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("create entry %s: %w", e.ID, err)
	}
	return nil
}

// UpdateEntry takes a share lock on the instance so a concurrent Cancel,
// which holds the row exclusively, is seen before the write.
func (s *Store) UpdateEntry(ctx context.Context, e game.Entry) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, "instance_status_share", e.InstanceID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("instance %s: %w", e.InstanceID, game.ErrInstanceNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock instance %s: %w", e.InstanceID, err)
		}
		if game.InstanceStatus(status) == game.InstanceCancelled {
			return fmt.Errorf("instance %s: %w", e.InstanceID, game.ErrInstanceCancelled)
		}

		tag, err := tx.Exec(ctx, "entry_update",
			e.ID, string(e.Status), e.AssignedTeamIDs, e.PickRound, e.Score,
			e.AppliedFixtures, e.EliminatedRound, e.InstanceID)
		if err != nil {
			return fmt.Errorf("update entry %s: %w", e.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("entry %s: %w", e.ID, game.ErrEntryNotFound)
		}
		return nil
	})
}

func (s *Store) CloseRound(ctx context.Context, instanceID string, c store.RoundClosure) (*game.Instance, error) {
	var out *game.Instance
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		in, err := lockInstance(ctx, tx, instanceID)
		if err != nil {
			return err
		}
		if in.Status == game.InstanceCancelled {
			return fmt.Errorf("instance %s: %w", instanceID, game.ErrInstanceCancelled)
		}
		if c.Transition != nil {
			if err := c.Transition(in); err != nil {
				return err
			}
		}

		mark := func(ids []string, status game.EntryStatus) error {
			if len(ids) == 0 {
				return nil
			}
			tag, err := tx.Exec(ctx, "entry_mark_status", instanceID, ids, string(status))
			if err != nil {
				return fmt.Errorf("mark entries %s: %w", status, err)
			}
			if int(tag.RowsAffected()) != len(ids) {
				return fmt.Errorf("mark %d entries %s, matched %d: %w", len(ids), status, tag.RowsAffected(), game.ErrEntryNotFound)
			}
			return nil
		}
		if err := mark(c.Won, game.EntryWon); err != nil {
			return err
		}
		if err := mark(c.Lost, game.EntryLost); err != nil {
			return err
		}

		if err := writeInstance(ctx, tx, in); err != nil {
			return err
		}
		out = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Reference data
// --------------------------------------------------------------------------

func (s *Store) ListTeams(ctx context.Context, seasonID int64) ([]game.Team, error) {
	rows, err := s.db.Query(ctx, "team_list", seasonID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []game.Team
	for rows.Next() {
		var t game.Team
		if err := rows.Scan(&t.ID, &t.SeasonID, &t.Name, &t.ShortCode, &t.LogoURL, &t.Eliminated); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertTeams(ctx context.Context, teams []game.Team) (int, error) {
	batch := &pgx.Batch{}
	for _, t := range teams {
		batch.Queue("team_upsert", t.ID, t.SeasonID, t.Name, t.ShortCode, t.LogoURL, t.Eliminated)
	}
	return s.sendBatch(ctx, batch, "teams")
}

func (s *Store) UpsertRounds(ctx context.Context, rounds []game.Round) (int, error) {
	batch := &pgx.Batch{}
	for _, r := range rounds {
		batch.Queue("round_upsert", r.ExternalID, r.SeasonID, r.Ordinal, r.Name, r.StartsAt, r.Finished)
	}
	return s.sendBatch(ctx, batch, "rounds")
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, what string) (int, error) {
	if batch.Len() == 0 {
		return 0, nil
	}
	br := s.db.SendBatch(ctx, batch)
	n := 0
	for range batch.Len() {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return n, fmt.Errorf("upsert %s: %w", what, err)
		}
		n++
	}
	return n, br.Close()
}

// Standings reads the materialized view, which maintenance refreshes after
// each settlement sweep.
func (s *Store) Standings(ctx context.Context, instanceID string) ([]store.Standing, error) {
	rows, err := s.db.Query(ctx, "standings", instanceID)
	if err != nil {
		return nil, fmt.Errorf("standings %s: %w", instanceID, err)
	}
	defer rows.Close()

	var out []store.Standing
	for rows.Next() {
		var (
			st     store.Standing
			status string
		)
		if err := rows.Scan(&st.Rank, &st.EntryID, &st.UserID, &status, &st.Score, &st.EliminatedRound, &st.CurrentTeamID); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		st.Status = game.EntryStatus(status)
		out = append(out, st)
	}
	return out, rows.Err()
}

// --------------------------------------------------------------------------
// Row helpers
// --------------------------------------------------------------------------

func lockInstance(ctx context.Context, tx pgx.Tx, id string) (*game.Instance, error) {
	in, err := scanInstance(tx.QueryRow(ctx, "instance_get_for_update", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("instance %s: %w", id, game.ErrInstanceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock instance %s: %w", id, err)
	}
	return in, nil
}

func writeInstance(ctx context.Context, tx pgx.Tx, in *game.Instance) error {
	roundID, roundOrd := splitRound(in.CurrentRound)
	err := tx.QueryRow(ctx, "instance_update",
		in.ID, in.Name, in.GameTypeSlug, string(in.Status), in.SeasonID, roundID, roundOrd,
		in.StartRound, in.EndRound, in.EntryFee, in.EntryDeadline,
	).Scan(&in.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update instance %s: %w", in.ID, err)
	}
	return nil
}

func splitRound(r *game.RoundRef) (*int64, *int) {
	if r == nil {
		return nil, nil
	}
	id, ord := r.ID, r.Ordinal
	return &id, &ord
}

func scanInstance(row pgx.Row) (*game.Instance, error) {
	var (
		in       game.Instance
		status   string
		roundID  *int64
		roundOrd *int
	)
	err := row.Scan(&in.ID, &in.Name, &in.GameTypeSlug, &status, &in.SeasonID, &roundID,
		&roundOrd, &in.StartRound, &in.EndRound, &in.EntryFee, &in.EntryDeadline,
		&in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	in.Status = game.InstanceStatus(status)
	if roundID != nil && roundOrd != nil {
		in.CurrentRound = &game.RoundRef{ID: *roundID, Ordinal: *roundOrd}
	}
	return &in, nil
}

func scanEntry(row pgx.Row) (*game.Entry, error) {
	var (
		e      game.Entry
		status string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.InstanceID, &status, &e.AssignedTeamIDs, &e.PickRound,
		&e.Score, &e.AppliedFixtures, &e.EliminatedRound, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = game.EntryStatus(status)
	return &e, nil
}
