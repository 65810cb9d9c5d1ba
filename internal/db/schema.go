package db

// --------------------------------------------------------------------------
// Schema
// --------------------------------------------------------------------------

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS game_instances (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL DEFAULT '',
		game_type_slug        TEXT NOT NULL,
		status                TEXT NOT NULL DEFAULT 'OPEN'
		                      CHECK (status IN ('OPEN', 'ACTIVE', 'COMPLETED', 'CANCELLED')),
		season_id             BIGINT NOT NULL,
		current_round_id      BIGINT,
		current_round_ordinal INT,
		start_round           INT NOT NULL DEFAULT 0,
		end_round             INT,
		entry_fee             BIGINT NOT NULL DEFAULT 0,
		entry_deadline        TIMESTAMPTZ,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_instances_status ON game_instances(status)`,

	`CREATE TABLE IF NOT EXISTS user_entries (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL,
		game_instance_id  TEXT NOT NULL REFERENCES game_instances(id) ON DELETE CASCADE,
		status            TEXT NOT NULL DEFAULT 'ACTIVE'
		                  CHECK (status IN ('ACTIVE', 'ELIMINATED', 'WON', 'LOST')),
		assigned_team_ids BIGINT[] NOT NULL DEFAULT '{}',
		pick_round        INT NOT NULL DEFAULT 0,
		score             INT NOT NULL DEFAULT 0,
		applied_fixtures  TEXT[] NOT NULL DEFAULT '{}',
		eliminated_round  INT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, game_instance_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_entries_instance ON user_entries(game_instance_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id         BIGINT NOT NULL,
		season_id  BIGINT NOT NULL,
		name       TEXT NOT NULL,
		short_code TEXT NOT NULL DEFAULT '',
		logo_url   TEXT NOT NULL DEFAULT '',
		eliminated BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (season_id, id)
	)`,

	`CREATE TABLE IF NOT EXISTS rounds (
		id         BIGINT PRIMARY KEY,
		season_id  BIGINT NOT NULL,
		ordinal    INT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		starts_at  TIMESTAMPTZ,
		finished   BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rounds_season ON rounds(season_id, ordinal)`,

	`CREATE TABLE IF NOT EXISTS settlement_leases (
		lease_key  TEXT PRIMARY KEY,
		token      TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS settlement_events (
		seq              BIGSERIAL PRIMARY KEY,
		id               UUID NOT NULL UNIQUE,
		event_type       TEXT NOT NULL,
		game_instance_id TEXT NOT NULL,
		entry_id         TEXT,
		payload          JSONB NOT NULL,
		status           TEXT NOT NULL DEFAULT 'pending'
		                 CHECK (status IN ('pending', 'sending', 'sent', 'failed')),
		attempts         INT NOT NULL DEFAULT 0,
		last_error       TEXT,
		occurred_at      TIMESTAMPTZ NOT NULL,
		sent_at          TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_settlement_events_pending ON settlement_events(seq) WHERE status IN ('pending', 'sending')`,

	// Rank mirrors store.RankStandings: winners, live entries, then the rest;
	// score descending; later elimination ranks higher.
	`CREATE MATERIALIZED VIEW IF NOT EXISTS mv_instance_standings AS
	SELECT
		e.game_instance_id,
		e.id AS entry_id,
		e.user_id,
		e.status,
		e.score,
		e.eliminated_round,
		e.assigned_team_ids[array_upper(e.assigned_team_ids, 1)] AS current_team_id,
		RANK() OVER (
			PARTITION BY e.game_instance_id
			ORDER BY CASE e.status WHEN 'WON' THEN 0 WHEN 'ACTIVE' THEN 1 ELSE 2 END,
			         e.score DESC,
			         COALESCE(e.eliminated_round, 1073741824) DESC
		) AS rank,
		e.created_at
	FROM user_entries e`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_mv_instance_standings_entry ON mv_instance_standings(game_instance_id, entry_id)`,
}

// --------------------------------------------------------------------------
// Prepared statements
// --------------------------------------------------------------------------

const instanceColumns = `id, name, game_type_slug, status, season_id, current_round_id,
	current_round_ordinal, start_round, end_round, entry_fee, entry_deadline, created_at, updated_at`

const entryColumns = `id, user_id, game_instance_id, status, assigned_team_ids, pick_round,
	score, applied_fixtures, eliminated_round, created_at, updated_at`

// Statements are prepared on every pooled connection; callers pass the map
// key as the SQL text.
var Statements = map[string]string{
	// Health
	"health_check": "SELECT 1",

	// Instances
	"instance_get":            "SELECT " + instanceColumns + " FROM game_instances WHERE id = $1",
	"instance_get_for_update": "SELECT " + instanceColumns + " FROM game_instances WHERE id = $1 FOR UPDATE",
	"instance_status_share":   "SELECT status FROM game_instances WHERE id = $1 FOR SHARE",
	"instance_list":           "SELECT " + instanceColumns + " FROM game_instances WHERE ($1 = '' OR status = $1) ORDER BY id",
	"instance_update": `UPDATE game_instances SET
		name = $2, game_type_slug = $3, status = $4, season_id = $5, current_round_id = $6,
		current_round_ordinal = $7, start_round = $8, end_round = $9, entry_fee = $10,
		entry_deadline = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,

	// Entries
	"entry_get":  "SELECT " + entryColumns + " FROM user_entries WHERE id = $1",
	"entry_list": "SELECT " + entryColumns + " FROM user_entries WHERE game_instance_id = $1 ORDER BY created_at, id",
	"entry_update": `UPDATE user_entries SET
		status = $2, assigned_team_ids = COALESCE($3::bigint[], '{}'), pick_round = $4, score = $5,
		applied_fixtures = COALESCE($6::text[], '{}'), eliminated_round = $7, updated_at = NOW()
		WHERE id = $1 AND game_instance_id = $8`,
	"entry_mark_status": `UPDATE user_entries SET status = $3, updated_at = NOW()
		WHERE game_instance_id = $1 AND id = ANY($2)`,

	// Reference data
	"team_list": "SELECT id, season_id, name, short_code, logo_url, eliminated FROM teams WHERE season_id = $1 ORDER BY id",
	"team_upsert": `INSERT INTO teams (id, season_id, name, short_code, logo_url, eliminated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (season_id, id) DO UPDATE SET
			name = EXCLUDED.name, short_code = EXCLUDED.short_code,
			logo_url = EXCLUDED.logo_url, eliminated = EXCLUDED.eliminated, updated_at = NOW()`,
	"round_upsert": `INSERT INTO rounds (id, season_id, ordinal, name, starts_at, finished)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			season_id = EXCLUDED.season_id, ordinal = EXCLUDED.ordinal, name = EXCLUDED.name,
			starts_at = EXCLUDED.starts_at, finished = EXCLUDED.finished, updated_at = NOW()`,

	// Read models
	"standings": `SELECT rank, entry_id, user_id, status, score, eliminated_round, current_team_id
		FROM mv_instance_standings WHERE game_instance_id = $1 ORDER BY rank, created_at, entry_id`,
}
