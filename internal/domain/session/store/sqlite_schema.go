// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import "github.com/ManuGH/thesisgrey/internal/persistence/sqlite"

// migrations is the ordered schema history. Append only.
var migrations = []sqlite.Migration{
	{Version: 1, SQL: `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		visibility TEXT NOT NULL,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL,
		started_at_ms INTEGER,
		completed_at_ms INTEGER,
		last_modified_by TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_owner_status ON sessions(owner_id, status);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at_ms);

	CREATE TABLE IF NOT EXISTS session_activities (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		action TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		user_id TEXT REFERENCES users(id) ON DELETE RESTRICT,
		created_at_ms INTEGER NOT NULL,
		old_status TEXT NOT NULL DEFAULT '',
		new_status TEXT NOT NULL DEFAULT '',
		metadata_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_activities_session ON session_activities(session_id, created_at_ms);
	CREATE INDEX IF NOT EXISTS idx_activities_user ON session_activities(user_id, created_at_ms);
	CREATE INDEX IF NOT EXISTS idx_activities_action ON session_activities(action);

	CREATE TABLE IF NOT EXISTS session_status_history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		from_status TEXT NOT NULL DEFAULT '',
		to_status TEXT NOT NULL,
		changed_by TEXT REFERENCES users(id) ON DELETE RESTRICT,
		changed_at_ms INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		metadata_json TEXT,
		ip_address TEXT NOT NULL DEFAULT '',
		duration_prev_ms INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_history_session ON session_status_history(session_id, changed_at_ms);
	CREATE INDEX IF NOT EXISTS idx_history_transition ON session_status_history(from_status, to_status);

	CREATE TABLE IF NOT EXISTS session_archives (
		session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
		archived_by TEXT REFERENCES users(id) ON DELETE SET NULL,
		archived_at_ms INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		stats_snapshot_json TEXT,
		restored_at_ms INTEGER,
		restored_by TEXT REFERENCES users(id) ON DELETE SET NULL
	);

	CREATE TABLE IF NOT EXISTS user_session_stats (
		user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		total_sessions INTEGER NOT NULL DEFAULT 0,
		completed_sessions INTEGER NOT NULL DEFAULT 0,
		completion_rate REAL NOT NULL DEFAULT 0,
		productivity_score REAL NOT NULL DEFAULT 0,
		payload_json TEXT NOT NULL,
		last_calculated_ms INTEGER NOT NULL
	);
	`},
}

// SchemaVersion is the version a fully migrated database reports.
func SchemaVersion() int {
	return migrations[len(migrations)-1].Version
}
