// Package store persists project records and their asset/deliverable
// children in SQLite.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	folder             TEXT NOT NULL UNIQUE,
	slug               TEXT NOT NULL DEFAULT '',
	title              TEXT NOT NULL DEFAULT '',
	summary            TEXT NOT NULL DEFAULT '',
	organization       TEXT NOT NULL DEFAULT '',
	work_type          TEXT NOT NULL DEFAULT '',
	year               INTEGER,
	role               TEXT NOT NULL DEFAULT '',
	seniority          TEXT NOT NULL DEFAULT '',
	categories         TEXT NOT NULL DEFAULT '[]',
	skills             TEXT NOT NULL DEFAULT '[]',
	tools              TEXT NOT NULL DEFAULT '[]',
	tags               TEXT NOT NULL DEFAULT '[]',
	highlights         TEXT NOT NULL DEFAULT '[]',
	links              TEXT NOT NULL DEFAULT '[]',
	nda                INTEGER NOT NULL DEFAULT 0,
	cover_image        TEXT NOT NULL DEFAULT '',
	case_study         TEXT NOT NULL DEFAULT '{}',
	pcsi               TEXT NOT NULL DEFAULT '{}',
	metadata_path      TEXT NOT NULL DEFAULT '',
	narrative_path     TEXT NOT NULL DEFAULT '',
	narrative          TEXT NOT NULL DEFAULT '',
	metadata_checksum  TEXT NOT NULL DEFAULT '',
	narrative_checksum TEXT NOT NULL DEFAULT '',
	sync_status        TEXT NOT NULL DEFAULT 'clean',
	fs_modified_at     DATETIME,
	last_synced_at     DATETIME,
	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_projects_slug   ON projects(slug);
CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(sync_status);

CREATE TABLE IF NOT EXISTS assets (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	rel_path    TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	kind        TEXT NOT NULL DEFAULT 'asset',
	size        INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	modified_at DATETIME,
	UNIQUE(project_id, rel_path)
);

CREATE INDEX IF NOT EXISTS idx_assets_project ON assets(project_id);

CREATE TABLE IF NOT EXISTS deliverables (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	rel_path    TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	format      TEXT NOT NULL DEFAULT 'file',
	size        INTEGER NOT NULL DEFAULT 0,
	checksum    TEXT NOT NULL DEFAULT '',
	modified_at DATETIME,
	UNIQUE(project_id, rel_path)
);

CREATE INDEX IF NOT EXISTS idx_deliverables_project ON deliverables(project_id);
`

// DB wraps a sql.DB with project store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
