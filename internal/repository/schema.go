package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema creates the roster tables. Reference lists are TEXT[] columns that are only
// ever mutated through add-to-set and pull statements.
const Schema = `
CREATE TABLE IF NOT EXISTS organizations (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	volunteers         TEXT[] NOT NULL DEFAULT '{}',
	pending_volunteers TEXT[] NOT NULL DEFAULT '{}',
	events             TEXT[] NOT NULL DEFAULT '{}',
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS volunteers (
	id            TEXT PRIMARY KEY,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	phone         TEXT NOT NULL DEFAULT '',
	organizations TEXT[] NOT NULL DEFAULT '{}',
	assignments   TEXT[] NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	location        TEXT NOT NULL DEFAULT '',
	start_time      TIMESTAMPTZ NOT NULL,
	end_time        TIMESTAMPTZ NOT NULL,
	organization_id TEXT NOT NULL,
	shifts          TEXT[] NOT NULL DEFAULT '{}',
	volunteers      TEXT[] NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	CHECK (start_time < end_time)
);
CREATE INDEX IF NOT EXISTS idx_events_organization ON events (organization_id, start_time);

CREATE TABLE IF NOT EXISTS shifts (
	id              TEXT PRIMARY KEY,
	start_time      TIMESTAMPTZ NOT NULL,
	end_time        TIMESTAMPTZ NOT NULL,
	event_id        TEXT NOT NULL,
	organization_id TEXT NOT NULL,
	max_spots       INTEGER CHECK (max_spots IS NULL OR max_spots > 0),
	volunteers      TEXT[] NOT NULL DEFAULT '{}',
	assignments     TEXT[] NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	CHECK (start_time < end_time)
);
CREATE INDEX IF NOT EXISTS idx_shifts_event ON shifts (event_id, start_time);

CREATE TABLE IF NOT EXISTS shift_assignments (
	id              TEXT PRIMARY KEY,
	volunteer_id    TEXT NOT NULL,
	shift_id        TEXT NOT NULL,
	event_id        TEXT NOT NULL,
	organization_id TEXT NOT NULL,
	verified        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (volunteer_id, shift_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_shift ON shift_assignments (shift_id);
CREATE INDEX IF NOT EXISTS idx_assignments_org ON shift_assignments (organization_id, created_at);

CREATE TABLE IF NOT EXISTS repair_tasks (
	id         TEXT PRIMARY KEY,
	operation  TEXT NOT NULL,
	action     TEXT NOT NULL,
	field      TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	ref_id     TEXT NOT NULL,
	status     TEXT NOT NULL,
	attempts   INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_repair_tasks_status ON repair_tasks (status, created_at);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
