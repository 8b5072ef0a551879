package store

import (
	"database/sql"
	"fmt"
)

// DefaultVectorDim matches nomic-embed-text, the default embedding model.
const DefaultVectorDim = 768

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS nodes (
    rowid          INTEGER PRIMARY KEY AUTOINCREMENT,
    id             TEXT NOT NULL UNIQUE,
    name           TEXT NOT NULL,
    qualified_name TEXT NOT NULL DEFAULT '',
    kind           TEXT NOT NULL,
    file_path      TEXT NOT NULL,
    start_line     INTEGER NOT NULL,
    end_line       INTEGER NOT NULL,
    start_column   INTEGER NOT NULL DEFAULT 0,
    end_column     INTEGER NOT NULL DEFAULT 0,
    language       TEXT NOT NULL DEFAULT '',
    signature      TEXT NOT NULL DEFAULT '',
    body           TEXT NOT NULL DEFAULT '',
    documentation  TEXT NOT NULL DEFAULT '',
    exported       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);
CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(file_path);

CREATE TABLE IF NOT EXISTS edges (
    source    TEXT NOT NULL,
    target    TEXT NOT NULL,
    kind      TEXT NOT NULL,
    file_path TEXT NOT NULL DEFAULT '',
    line      INTEGER NOT NULL DEFAULT 0,
    metadata  TEXT NOT NULL DEFAULT '',
    UNIQUE(source, target, kind, file_path, line)
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source, kind);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target, kind);
CREATE INDEX IF NOT EXISTS idx_edges_file ON edges(file_path);

CREATE TABLE IF NOT EXISTS files (
    path       TEXT PRIMARY KEY,
    hash       TEXT NOT NULL,
    language   TEXT NOT NULL DEFAULT '',
    indexed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS unresolved_refs (
    source    TEXT NOT NULL,
    specifier TEXT NOT NULL,
    ref_type  TEXT NOT NULL,
    file_path TEXT NOT NULL DEFAULT '',
    line      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_unresolved_file ON unresolved_refs(file_path);

CREATE TABLE IF NOT EXISTS embeddings (
    node_rowid INTEGER PRIMARY KEY,
    model      TEXT NOT NULL DEFAULT ''
);

CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
    name,
    qualified_name,
    signature,
    documentation,
    file_path
);
`

// vecDDL is separate because the embedding dimension is configurable.
const vecDDL = `
CREATE VIRTUAL TABLE IF NOT EXISTS vec_nodes USING vec0(
    node_rowid INTEGER PRIMARY KEY,
    embedding float[%d]
);
`

// initSchema creates the primary tables and both shadow indexes.
func initSchema(db *sql.DB, vectorDim int) error {
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf(vecDDL, vectorDim)); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	return nil
}
