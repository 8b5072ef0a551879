package store

import "codegraph/internal/graph"

// Stats summarizes the indexed project.
type Stats struct {
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
	Files          int `json:"files"`
	Embeddings     int `json:"embeddings"`
	UnresolvedRefs int `json:"unresolvedRefs"`
}

// Hit is a node returned by one of the shadow indexes, in ranked order.
// Score is index-specific (bm25 for full-text, distance for vectors) and is
// only meaningful within a single result list.
type Hit struct {
	Node  graph.Node
	Score float64
}
