// Package store persists the code graph in SQLite and keeps the full-text
// (FTS5) and vector (sqlite-vec) shadow indexes transactionally consistent
// with every node mutation.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"codegraph/internal/graph"
)

func init() {
	sqlite_vec.Auto()
}

// Store provides persistence for the code graph and its shadow indexes.
// All operations are synchronous and appear atomic to callers: a reader
// never observes a half-written batch.
type Store interface {
	// UpsertNodes inserts or replaces nodes by ID. The full-text and vector
	// shadow indexes are updated in the same transaction. Replaying an
	// identical batch is a no-op diff.
	UpsertNodes(nodes []graph.Node) error
	// UpsertEdges inserts edges, ignoring exact duplicates. Targets need
	// not resolve to stored nodes.
	UpsertEdges(edges []graph.Edge) error
	// DeleteFile removes a file's hash record plus every node, edge,
	// unresolved ref, and shadow-index row that came from it.
	DeleteFile(path string) error

	// GetNode resolves an exact ID first, then falls back to a name match.
	// Name ties break deterministically: exported symbols first, then
	// shortest file path, then insertion order. Returns (nil, nil) when
	// nothing matches.
	GetNode(idOrName string) (*graph.Node, error)
	// GetNodesByName returns every node with the given name.
	GetNodesByName(name string) ([]graph.Node, error)
	GetAllNodes() ([]graph.Node, error)
	GetAllEdges() ([]graph.Edge, error)
	// EdgesFrom returns edges leaving source, optionally restricted to kinds.
	EdgesFrom(source string, kinds ...graph.EdgeKind) ([]graph.Edge, error)
	// EdgesInto returns edges arriving at target, optionally restricted to kinds.
	EdgesInto(target string, kinds ...graph.EdgeKind) ([]graph.Edge, error)
	// EdgesOfKind returns every edge of the given kinds.
	EdgesOfKind(kinds ...graph.EdgeKind) ([]graph.Edge, error)
	// AllNames returns the distinct node names, used for suggestions.
	AllNames() ([]string, error)

	// SearchText queries the FTS5 shadow index, best match first.
	SearchText(query string, limit int) ([]Hit, error)
	// SearchVector queries the vector shadow index, nearest first.
	SearchVector(embedding []float32, limit int) ([]Hit, error)
	// UpsertEmbeddings replaces the stored vector for each node ID.
	UpsertEmbeddings(nodeIDs []string, embeddings [][]float32, model string) error

	GetFileHash(path string) (string, error)
	UpsertFileHash(fh graph.FileHash) error
	ListFiles() ([]graph.FileHash, error)

	InsertUnresolvedRef(ref graph.UnresolvedRef) error
	UnresolvedRefCount() (int, error)

	GetStats() (Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by SQLite + FTS5 + sqlite-vec.
// A single coarse lock serializes writers while allowing concurrent reads.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// Option configures Open.
type Option func(*options)

type options struct {
	vectorDim int
}

// WithVectorDim sets the embedding dimension of the vector shadow index.
func WithVectorDim(dim int) Option {
	return func(o *options) { o.vectorDim = dim }
}

// Open creates or opens the store at dbPath and initializes the schema.
func Open(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := options{vectorDim: DefaultVectorDim}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := initSchema(db, o.vectorDim); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const nodeColumns = `id, name, qualified_name, kind, file_path, start_line, end_line,
	start_column, end_column, language, signature, body, documentation, exported`

func scanNode(row interface{ Scan(...any) error }) (graph.Node, error) {
	var n graph.Node
	err := row.Scan(&n.ID, &n.Name, &n.QualifiedName, &n.Kind, &n.FilePath,
		&n.StartLine, &n.EndLine, &n.StartColumn, &n.EndColumn,
		&n.Language, &n.Signature, &n.Body, &n.Documentation, &n.Exported)
	return n, err
}

func (s *SQLiteStore) UpsertNodes(nodes []graph.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return graph.StorageError("upsert nodes", err)
	}
	defer tx.Rollback()

	upsert, err := tx.Prepare(`
		INSERT INTO nodes (id, name, qualified_name, kind, file_path, start_line, end_line,
			start_column, end_column, language, signature, body, documentation, exported)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			qualified_name = excluded.qualified_name,
			kind = excluded.kind,
			file_path = excluded.file_path,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			start_column = excluded.start_column,
			end_column = excluded.end_column,
			language = excluded.language,
			signature = excluded.signature,
			body = excluded.body,
			documentation = excluded.documentation,
			exported = excluded.exported`)
	if err != nil {
		return graph.StorageError("upsert nodes", err)
	}
	defer upsert.Close()

	for _, n := range nodes {
		if _, err := upsert.Exec(n.ID, n.Name, n.QualifiedName, n.Kind, n.FilePath,
			n.StartLine, n.EndLine, n.StartColumn, n.EndColumn,
			n.Language, n.Signature, n.Body, n.Documentation, n.Exported); err != nil {
			return graph.StorageError("upsert nodes", err)
		}

		// Refresh the full-text shadow row in the same transaction so a
		// search can never return a symbol whose primary row is gone.
		var rowid int64
		if err := tx.QueryRow("SELECT rowid FROM nodes WHERE id = ?", n.ID).Scan(&rowid); err != nil {
			return graph.StorageError("upsert nodes", err)
		}
		if _, err := tx.Exec("DELETE FROM nodes_fts WHERE rowid = ?", rowid); err != nil {
			return graph.StorageError("upsert nodes", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO nodes_fts (rowid, name, qualified_name, signature, documentation, file_path) VALUES (?, ?, ?, ?, ?, ?)",
			rowid, n.Name, n.QualifiedName, n.Signature, n.Documentation, n.FilePath); err != nil {
			return graph.StorageError("upsert nodes", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return graph.StorageError("upsert nodes", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertEdges(edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return graph.StorageError("upsert edges", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO edges (source, target, kind, file_path, line, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, target, kind, file_path, line) DO NOTHING`)
	if err != nil {
		return graph.StorageError("upsert edges", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.Exec(e.Source, e.Target, e.Kind, e.FilePath, e.Line, e.Metadata); err != nil {
			return graph.StorageError("upsert edges", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return graph.StorageError("upsert edges", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return graph.StorageError("delete file", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT rowid FROM nodes WHERE file_path = ?", path)
	if err != nil {
		return graph.StorageError("delete file", err)
	}
	var rowids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return graph.StorageError("delete file", err)
		}
		rowids = append(rowids, id)
	}
	rows.Close()

	for _, rowid := range rowids {
		for _, q := range []string{
			"DELETE FROM nodes_fts WHERE rowid = ?",
			"DELETE FROM vec_nodes WHERE node_rowid = ?",
			"DELETE FROM embeddings WHERE node_rowid = ?",
		} {
			if _, err := tx.Exec(q, rowid); err != nil {
				return graph.StorageError("delete file", err)
			}
		}
	}

	for _, q := range []string{
		"DELETE FROM nodes WHERE file_path = ?",
		"DELETE FROM edges WHERE file_path = ?",
		"DELETE FROM unresolved_refs WHERE file_path = ?",
		"DELETE FROM files WHERE path = ?",
	} {
		if _, err := tx.Exec(q, path); err != nil {
			return graph.StorageError("delete file", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return graph.StorageError("delete file", err)
	}
	return nil
}

func (s *SQLiteStore) GetNode(idOrName string) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := scanNode(s.db.QueryRow(
		"SELECT "+nodeColumns+" FROM nodes WHERE id = ?", idOrName))
	if err == nil {
		return &n, nil
	}
	if err != sql.ErrNoRows {
		return nil, graph.StorageError("get node", err)
	}

	// Tie-break is deliberate: exported first, then shortest path, then
	// insertion order, so repeated lookups are stable.
	n, err = scanNode(s.db.QueryRow(
		"SELECT "+nodeColumns+` FROM nodes WHERE name = ?
		 ORDER BY exported DESC, LENGTH(file_path) ASC, rowid ASC LIMIT 1`, idOrName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, graph.StorageError("get node", err)
	}
	return &n, nil
}

func (s *SQLiteStore) GetNodesByName(name string) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryNodes(
		"SELECT "+nodeColumns+" FROM nodes WHERE name = ? ORDER BY rowid", name)
}

func (s *SQLiteStore) GetAllNodes() ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryNodes("SELECT " + nodeColumns + " FROM nodes ORDER BY rowid")
}

func (s *SQLiteStore) queryNodes(query string, args ...any) ([]graph.Node, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, graph.StorageError("query nodes", err)
	}
	defer rows.Close()

	var nodes []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, graph.StorageError("query nodes", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

const edgeColumns = "source, target, kind, file_path, line, metadata"

func (s *SQLiteStore) GetAllEdges() ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEdges("SELECT " + edgeColumns + " FROM edges")
}

func (s *SQLiteStore) EdgesFrom(source string, kinds ...graph.EdgeKind) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, args := edgeQuery("source", source, kinds)
	return s.queryEdges(q, args...)
}

func (s *SQLiteStore) EdgesInto(target string, kinds ...graph.EdgeKind) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, args := edgeQuery("target", target, kinds)
	return s.queryEdges(q, args...)
}

func (s *SQLiteStore) EdgesOfKind(kinds ...graph.EdgeKind) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(kinds) == 0 {
		return s.queryEdges("SELECT " + edgeColumns + " FROM edges")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(kinds)), ",")
	args := make([]any, len(kinds))
	for i, k := range kinds {
		args[i] = string(k)
	}
	return s.queryEdges(
		"SELECT "+edgeColumns+" FROM edges WHERE kind IN ("+placeholders+")", args...)
}

func edgeQuery(column, value string, kinds []graph.EdgeKind) (string, []any) {
	q := "SELECT " + edgeColumns + " FROM edges WHERE " + column + " = ?"
	args := []any{value}
	if len(kinds) > 0 {
		q += " AND kind IN (" + strings.TrimSuffix(strings.Repeat("?,", len(kinds)), ",") + ")"
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	return q, args
}

func (s *SQLiteStore) queryEdges(query string, args ...any) ([]graph.Edge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, graph.StorageError("query edges", err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.Source, &e.Target, &e.Kind, &e.FilePath, &e.Line, &e.Metadata); err != nil {
			return nil, graph.StorageError("query edges", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *SQLiteStore) AllNames() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT DISTINCT name FROM nodes")
	if err != nil {
		return nil, graph.StorageError("list names", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, graph.StorageError("list names", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SearchText matches the query against the FTS5 shadow index. Terms are
// quoted so identifier punctuation can't break MATCH syntax.
func (s *SQLiteStore) SearchText(query string, limit int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT `+prefixed(nodeColumns, "n.")+`, rank
		FROM nodes_fts f
		JOIN nodes n ON n.rowid = f.rowid
		WHERE nodes_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, graph.StorageError("text search", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		err := rows.Scan(&h.Node.ID, &h.Node.Name, &h.Node.QualifiedName, &h.Node.Kind,
			&h.Node.FilePath, &h.Node.StartLine, &h.Node.EndLine,
			&h.Node.StartColumn, &h.Node.EndColumn, &h.Node.Language,
			&h.Node.Signature, &h.Node.Body, &h.Node.Documentation, &h.Node.Exported,
			&h.Score)
		if err != nil {
			return nil, graph.StorageError("text search", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery turns free text into an FTS5 MATCH expression: each term quoted,
// joined with OR.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, len(fields))
	for i, f := range fields {
		terms[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(terms, " OR ")
}

func prefixed(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func (s *SQLiteStore) SearchVector(embedding []float32, limit int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT `+prefixed(nodeColumns, "n.")+`, v.distance
		FROM vec_nodes v
		JOIN nodes n ON n.rowid = v.node_rowid
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance`, blob, limit)
	if err != nil {
		return nil, graph.StorageError("vector search", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		err := rows.Scan(&h.Node.ID, &h.Node.Name, &h.Node.QualifiedName, &h.Node.Kind,
			&h.Node.FilePath, &h.Node.StartLine, &h.Node.EndLine,
			&h.Node.StartColumn, &h.Node.EndColumn, &h.Node.Language,
			&h.Node.Signature, &h.Node.Body, &h.Node.Documentation, &h.Node.Exported,
			&h.Score)
		if err != nil {
			return nil, graph.StorageError("vector search", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *SQLiteStore) UpsertEmbeddings(nodeIDs []string, embeddings [][]float32, model string) error {
	if len(nodeIDs) != len(embeddings) {
		return fmt.Errorf("mismatched node IDs (%d) and embeddings (%d)", len(nodeIDs), len(embeddings))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return graph.StorageError("upsert embeddings", err)
	}
	defer tx.Rollback()

	for i, id := range nodeIDs {
		var rowid int64
		err := tx.QueryRow("SELECT rowid FROM nodes WHERE id = ?", id).Scan(&rowid)
		if err == sql.ErrNoRows {
			continue // node was deleted between extraction and embedding
		}
		if err != nil {
			return graph.StorageError("upsert embeddings", err)
		}

		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for node %s: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM vec_nodes WHERE node_rowid = ?", rowid); err != nil {
			return graph.StorageError("upsert embeddings", err)
		}
		if _, err := tx.Exec("INSERT INTO vec_nodes (node_rowid, embedding) VALUES (?, ?)", rowid, blob); err != nil {
			return graph.StorageError("upsert embeddings", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO embeddings (node_rowid, model) VALUES (?, ?) ON CONFLICT(node_rowid) DO UPDATE SET model = excluded.model",
			rowid, model); err != nil {
			return graph.StorageError("upsert embeddings", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return graph.StorageError("upsert embeddings", err)
	}
	return nil
}

func (s *SQLiteStore) GetFileHash(path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	err := s.db.QueryRow("SELECT hash FROM files WHERE path = ?", path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", graph.StorageError("get file hash", err)
	}
	return hash, nil
}

func (s *SQLiteStore) UpsertFileHash(fh graph.FileHash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO files (path, hash, language, indexed_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			language = excluded.language,
			indexed_at = CURRENT_TIMESTAMP`,
		fh.Path, fh.Hash, fh.Language)
	if err != nil {
		return graph.StorageError("upsert file hash", err)
	}
	return nil
}

func (s *SQLiteStore) ListFiles() ([]graph.FileHash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT path, hash, language, indexed_at FROM files ORDER BY path")
	if err != nil {
		return nil, graph.StorageError("list files", err)
	}
	defer rows.Close()

	var files []graph.FileHash
	for rows.Next() {
		var f graph.FileHash
		if err := rows.Scan(&f.Path, &f.Hash, &f.Language, &f.IndexedAt); err != nil {
			return nil, graph.StorageError("list files", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) InsertUnresolvedRef(ref graph.UnresolvedRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO unresolved_refs (source, specifier, ref_type, file_path, line) VALUES (?, ?, ?, ?, ?)",
		ref.Source, ref.Specifier, ref.RefType, ref.FilePath, ref.Line)
	if err != nil {
		return graph.StorageError("insert unresolved ref", err)
	}
	return nil
}

func (s *SQLiteStore) UnresolvedRefCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM unresolved_refs").Scan(&n); err != nil {
		return 0, graph.StorageError("count unresolved refs", err)
	}
	return n, nil
}

func (s *SQLiteStore) GetStats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM nodes", &st.Nodes},
		{"SELECT COUNT(*) FROM edges", &st.Edges},
		{"SELECT COUNT(*) FROM files", &st.Files},
		{"SELECT COUNT(*) FROM embeddings", &st.Embeddings},
		{"SELECT COUNT(*) FROM unresolved_refs", &st.UnresolvedRefs},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return Stats{}, graph.StorageError("stats", err)
		}
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
