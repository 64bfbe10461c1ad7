package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// Calendar dates (date_lost, date_found) are stored as YYYY-MM-DD text so that
// range filters and the retention cutoff compare lexicographically.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'staff', 'student')),
    email         TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS counters (
    kind  TEXT PRIMARY KEY CHECK (kind IN ('lost', 'found', 'match')),
    value INTEGER NOT NULL CHECK (value > 0)
);

CREATE TABLE IF NOT EXISTS lost_reports (
    id             TEXT PRIMARY KEY,
    item_name      TEXT NOT NULL,
    category       TEXT NOT NULL,
    description    TEXT NOT NULL,
    location       TEXT NOT NULL,
    date_lost      TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'Matched', 'Claimed')),
    notify_address TEXT NOT NULL DEFAULT 'none',
    owner_id       INTEGER REFERENCES users(id),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_lost_reports_status ON lost_reports(status, date_lost);
CREATE INDEX IF NOT EXISTS idx_lost_reports_owner ON lost_reports(owner_id);

CREATE TABLE IF NOT EXISTS found_records (
    id          TEXT PRIMARY KEY,
    item_name   TEXT NOT NULL,
    category    TEXT NOT NULL,
    description TEXT NOT NULL,
    location    TEXT NOT NULL,
    date_found  TEXT NOT NULL,
    finder_name TEXT NOT NULL,
    finder_id   TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'Pending' CHECK (status IN ('Pending', 'Matched', 'Claimed')),
    photo_ref   TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_found_records_status ON found_records(status, date_found);

CREATE TABLE IF NOT EXISTS matches (
    id             TEXT PRIMARY KEY,
    lost_id        TEXT NOT NULL REFERENCES lost_reports(id),
    found_id       TEXT NOT NULL REFERENCES found_records(id),
    lost_snapshot  TEXT NOT NULL,
    found_snapshot TEXT NOT NULL,
    matched_at     DATETIME NOT NULL,
    UNIQUE (lost_id, found_id)
);

CREATE TABLE IF NOT EXISTS archive (
    id              INTEGER PRIMARY KEY,
    kind            TEXT NOT NULL CHECK (kind IN ('lost', 'found')),
    record_id       TEXT NOT NULL,
    status          TEXT NOT NULL CHECK (status IN ('Claimed', 'Archived')),
    category        TEXT NOT NULL,
    snapshot        TEXT NOT NULL,
    claimed_by_id   TEXT NOT NULL DEFAULT '',
    claimed_by_name TEXT NOT NULL DEFAULT '',
    archived_at     DATETIME NOT NULL,
    UNIQUE (kind, record_id)
);

CREATE TRIGGER IF NOT EXISTS archive_no_update
    BEFORE UPDATE ON archive
BEGIN
    SELECT RAISE(ABORT, 'archive rows are immutable');
END;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: archived rows are never deleted either.
	`CREATE TRIGGER IF NOT EXISTS archive_no_delete
	     BEFORE DELETE ON archive
	 BEGIN
	     SELECT RAISE(ABORT, 'archive rows are append-only');
	 END`,
}

// EnsureSchema creates all tables and indexes if they don't already exist and
// applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
