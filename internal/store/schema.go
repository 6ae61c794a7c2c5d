// SPDX-License-Identifier: MIT

package store

import "fmt"

// Timestamps are stored as unix seconds; the domain works at second
// resolution anyway. The partial unique index is the hard guarantee behind
// the one-ongoing-session-per-user invariant.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	name                 TEXT    NOT NULL,
	email                TEXT    NOT NULL UNIQUE,
	password_hash        TEXT    NOT NULL,
	role                 TEXT    NOT NULL DEFAULT 'AGENT',
	must_change_password INTEGER NOT NULL DEFAULT 0,
	last_login           INTEGER
);

CREATE TABLE IF NOT EXISTS break_types (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT    NOT NULL UNIQUE,
	duration  INTEGER NOT NULL CHECK (duration > 0),
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS user_allowed_breaks (
	user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	break_type_id INTEGER NOT NULL REFERENCES break_types(id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, break_type_id)
);

CREATE TABLE IF NOT EXISTS break_sessions (
	id                  TEXT    PRIMARY KEY,
	user_id             INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	break_type_id       INTEGER NOT NULL REFERENCES break_types(id),
	break_type_name     TEXT    NOT NULL,
	break_type_duration INTEGER NOT NULL,
	status              TEXT    NOT NULL,
	start_time          INTEGER NOT NULL,
	expected_end_time   INTEGER NOT NULL,
	end_time            INTEGER,
	violation_duration  INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_ongoing
	ON break_sessions (user_id) WHERE status = 'ONGOING';

CREATE INDEX IF NOT EXISTS idx_sessions_user_start
	ON break_sessions (user_id, start_time DESC);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}
