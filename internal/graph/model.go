// Package graph defines the node/edge model shared by the store, the
// traversal engine, and the rankers.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// NodeKind classifies a symbol.
type NodeKind string

const (
	KindFunction  NodeKind = "function"
	KindClass     NodeKind = "class"
	KindMethod    NodeKind = "method"
	KindInterface NodeKind = "interface"
	KindTypeAlias NodeKind = "type_alias"
	KindEnum      NodeKind = "enum"
	KindVariable  NodeKind = "variable"
	KindStruct    NodeKind = "struct"
	KindTrait     NodeKind = "trait"
	KindModule    NodeKind = "module"
	KindProperty  NodeKind = "property"
	KindNamespace NodeKind = "namespace"
	KindConstant  NodeKind = "constant"
)

// EdgeKind classifies a directed relationship between two symbols.
type EdgeKind string

const (
	EdgeImports    EdgeKind = "imports"
	EdgeCalls      EdgeKind = "calls"
	EdgeContains   EdgeKind = "contains"
	EdgeExtends    EdgeKind = "extends"
	EdgeImplements EdgeKind = "implements"
	EdgeReferences EdgeKind = "references"
)

// Node is a single indexed symbol. ID is the sole join key used by every
// other structure.
type Node struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualifiedName,omitempty"`
	Kind          NodeKind `json:"kind"`
	FilePath      string   `json:"filePath"`
	StartLine     int      `json:"startLine"`
	EndLine       int      `json:"endLine"`
	StartColumn   int      `json:"startColumn,omitempty"`
	EndColumn     int      `json:"endColumn,omitempty"`
	Language      string   `json:"language"`
	Signature     string   `json:"signature,omitempty"`
	Body          string   `json:"body,omitempty"`
	Documentation string   `json:"documentation,omitempty"`
	Exported      bool     `json:"exported,omitempty"`
}

// Edge is a directed relationship between two node IDs. Target need not
// resolve to a stored node — imports of third-party modules legitimately
// point at identifiers that were never indexed.
type Edge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Kind     EdgeKind `json:"kind"`
	FilePath string   `json:"filePath,omitempty"`
	Line     int      `json:"line,omitempty"`
	Metadata string   `json:"metadata,omitempty"`
}

// FileHash records the content hash of an indexed file, keyed by path.
// Unchanged hashes let the indexer skip a file entirely.
type FileHash struct {
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	Language  string    `json:"language"`
	IndexedAt time.Time `json:"indexedAt"`
}

// UnresolvedRef records an import or reference that could not be resolved
// to a concrete node at index time.
type UnresolvedRef struct {
	Source    string `json:"source"`
	Specifier string `json:"specifier"`
	RefType   string `json:"refType"`
	FilePath  string `json:"filePath"`
	Line      int    `json:"line"`
}

// NodeID derives the stable identifier for a symbol. Re-indexing the same
// unchanged declaration reproduces the same ID.
func NodeID(kind NodeKind, filePath, name string, startLine int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", kind, filePath, name, startLine)))
	return hex.EncodeToString(sum[:8])
}
