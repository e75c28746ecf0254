package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type step struct {
	name string
	sql  string
}

// tables are created in dependency order and dropped in reverse.
var tables = []step{
	{"politicians", `
CREATE TABLE IF NOT EXISTS politicians (
    id          BIGSERIAL PRIMARY KEY,
    full_name   TEXT NOT NULL,
    first_name  TEXT NOT NULL DEFAULT '',
    last_name   TEXT NOT NULL DEFAULT '',
    name_key    TEXT NOT NULL,
    state       CHAR(2) NOT NULL DEFAULT '',
    party       TEXT NOT NULL DEFAULT '',
    birth_date  DATE,
    offices     JSONB NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`},
	{"identity_mappings", `
CREATE TABLE IF NOT EXISTS identity_mappings (
    system        TEXT NOT NULL,
    local_id      TEXT NOT NULL,
    politician_id BIGINT NOT NULL REFERENCES politicians(id),
    confidence    TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (system, local_id),
    CONSTRAINT chk_identity_system CHECK (system IN ('FEC', 'ICPSR', 'BIOGUIDE')),
    CONSTRAINT chk_identity_confidence CHECK (confidence IN ('EXACT', 'HEURISTIC'))
)`},
	{"bills", `
CREATE TABLE IF NOT EXISTS bills (
    congress    INT  NOT NULL,
    bill_type   TEXT NOT NULL,
    bill_number INT  NOT NULL,
    title       TEXT NOT NULL,
    enacted_on  DATE NOT NULL,
    policy_area TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (congress, bill_type, bill_number)
)`},
	{"votes", `
CREATE TABLE IF NOT EXISTS votes (
    politician_id BIGINT NOT NULL REFERENCES politicians(id),
    roll_call_id  TEXT   NOT NULL,
    congress      INT    NOT NULL,
    bill_type     TEXT   NOT NULL,
    bill_number   INT    NOT NULL,
    position      TEXT   NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (politician_id, roll_call_id),
    FOREIGN KEY (congress, bill_type, bill_number) REFERENCES bills(congress, bill_type, bill_number),
    CONSTRAINT chk_vote_position CHECK (position IN ('YEA', 'NAY', 'PRESENT', 'NOT_VOTING'))
)`},
	{"donors", `
CREATE TABLE IF NOT EXISTS donors (
    id           BIGSERIAL PRIMARY KEY,
    donor_type   TEXT NOT NULL,
    name         TEXT NOT NULL,
    name_key     TEXT NOT NULL,
    committee_id TEXT NOT NULL DEFAULT '',
    employer     TEXT NOT NULL DEFAULT '',
    occupation   TEXT NOT NULL DEFAULT '',
    city         TEXT NOT NULL DEFAULT '',
    state        TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (donor_type, name_key, committee_id)
)`},
	{"donations", `
CREATE TABLE IF NOT EXISTS donations (
    source_tx_id  TEXT PRIMARY KEY,
    donor_id      BIGINT NOT NULL REFERENCES donors(id),
    politician_id BIGINT NOT NULL REFERENCES politicians(id),
    amount        NUMERIC(14, 2) NOT NULL,
    donation_date DATE NOT NULL,
    source_file   TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_donation_amount CHECK (amount > 2000)
)`},
	{"deferred_records", `
CREATE TABLE IF NOT EXISTS deferred_records (
    id            BIGSERIAL PRIMARY KEY,
    kind          TEXT NOT NULL,
    system        TEXT NOT NULL,
    local_id      TEXT NOT NULL,
    reason        TEXT NOT NULL,
    detail        TEXT NOT NULL DEFAULT '',
    payload       JSONB,
    attempts      INT  NOT NULL DEFAULT 1,
    first_seen_at TIMESTAMPTZ NOT NULL,
    last_seen_at  TIMESTAMPTZ NOT NULL,
    resolved_at   TIMESTAMPTZ,
    UNIQUE (kind, system, local_id)
)`},
	{"ingest_runs", `
CREATE TABLE IF NOT EXISTS ingest_runs (
    seq         BIGSERIAL,
    run_id      TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    summary     JSONB NOT NULL
)`},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_politicians_name_key ON politicians(name_key)`,
	`CREATE INDEX IF NOT EXISTS idx_identity_mappings_politician_id ON identity_mappings(politician_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_bill ON votes(congress, bill_type, bill_number)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_politician_id ON donations(politician_id)`,
	`CREATE INDEX IF NOT EXISTS idx_donations_donor_id ON donations(donor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_deferred_records_pending ON deferred_records(kind, id) WHERE resolved_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_ingest_runs_seq ON ingest_runs(seq DESC)`,
}

// searchIndexes need pg_trgm. They only speed up name search, so a
// database without the extension still migrates.
var searchIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_politicians_full_name_trgm ON politicians USING gin(full_name gin_trgm_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_politicians_name_key_trgm ON politicians USING gin(name_key gin_trgm_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_donors_name_trgm ON donors USING gin(name gin_trgm_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_donors_employer_trgm ON donors USING gin(employer gin_trgm_ops)`,
}

// MigrateUp creates the schema. It is idempotent.
func MigrateUp(ctx context.Context, db Execer) error {
	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.sql); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS pg_trgm`); err != nil {
		return nil
	}
	for _, idx := range searchIndexes {
		_, _ = db.ExecContext(ctx, idx)
	}
	return nil
}

// MigrateDown drops every table MigrateUp created, and all data with them.
func MigrateDown(ctx context.Context, db Execer) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS `+tables[i].name+` CASCADE`); err != nil {
			return fmt.Errorf("drop table %s: %w", tables[i].name, err)
		}
	}
	return nil
}
