// Package traverse implements breadth-first walks over the code graph:
// callers, callees, dependencies, and shortest call paths.
package traverse

import (
	"fmt"

	"codegraph/internal/graph"
	"codegraph/internal/store"
)

// HardMaxDepth bounds every traversal regardless of what the caller asks
// for, so a pathological query cannot walk the whole graph at depth 10^6.
const HardMaxDepth = 50

// DefaultDepth is used when the caller passes a non-positive depth.
const DefaultDepth = 3

// DetailLevel controls how much of each discovered node is projected.
type DetailLevel string

const (
	DetailSummary  DetailLevel = "summary"
	DetailStandard DetailLevel = "standard"
	DetailFull     DetailLevel = "full"
)

// Node is a discovered node projected at the requested detail level.
type Node struct {
	Name     string         `json:"name"`
	Kind     graph.NodeKind `json:"kind"`
	FilePath string         `json:"filePath"`
	Depth    int            `json:"depth"`

	// Standard adds these.
	ID        string `json:"id,omitempty"`
	StartLine int    `json:"startLine,omitempty"`

	// Full adds the rest.
	EndLine       int    `json:"endLine,omitempty"`
	Language      string `json:"language,omitempty"`
	QualifiedName string `json:"qualifiedName,omitempty"`
	Body          string `json:"body,omitempty"`
	Documentation string `json:"documentation,omitempty"`
}

// Result is the output of a callers/callees/dependencies walk.
type Result struct {
	Root  Node   `json:"root"`
	Nodes []Node `json:"nodes"`
}

// PathResult is the output of FindPath.
type PathResult struct {
	Found  bool   `json:"found"`
	Length int    `json:"length,omitempty"`
	Path   []Node `json:"path,omitempty"`
}

// Traverser walks the store's edge set.
type Traverser struct {
	st store.Store
}

func New(st store.Store) *Traverser {
	return &Traverser{st: st}
}

// Callers walks reverse Calls edges from the symbol.
func (t *Traverser) Callers(symbol string, maxDepth int, detail DetailLevel) (*Result, error) {
	return t.walkFrom(symbol, maxDepth, detail, func(id string) ([]string, error) {
		edges, err := t.st.EdgesInto(id, graph.EdgeCalls)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(edges))
		for i, e := range edges {
			out[i] = e.Source
		}
		return out, nil
	})
}

// Callees walks forward Calls edges from the symbol.
func (t *Traverser) Callees(symbol string, maxDepth int, detail DetailLevel) (*Result, error) {
	return t.walkFrom(symbol, maxDepth, detail, func(id string) ([]string, error) {
		edges, err := t.st.EdgesFrom(id, graph.EdgeCalls)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(edges))
		for i, e := range edges {
			out[i] = e.Target
		}
		return out, nil
	})
}

// Dependencies walks forward Imports and References edges from the symbol.
func (t *Traverser) Dependencies(symbol string, maxDepth int, detail DetailLevel) (*Result, error) {
	return t.walkFrom(symbol, maxDepth, detail, func(id string) ([]string, error) {
		edges, err := t.st.EdgesFrom(id, graph.EdgeImports, graph.EdgeReferences)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(edges))
		for i, e := range edges {
			out[i] = e.Target
		}
		return out, nil
	})
}

// FindPath runs a BFS from one symbol to another over Calls edges and
// returns the first shortest path found, or Found=false when the target is
// unreachable within maxDepth.
func (t *Traverser) FindPath(from, to string, maxDepth int) (*PathResult, error) {
	src, err := t.resolve(from)
	if err != nil {
		return nil, err
	}
	dst, err := t.resolve(to)
	if err != nil {
		return nil, err
	}
	maxDepth = clampDepth(maxDepth)

	if src.ID == dst.ID {
		return &PathResult{Found: true, Length: 1, Path: []Node{project(*src, 0, DetailStandard)}}, nil
	}

	parent := map[string]string{src.ID: ""}
	frontier := []string{src.ID}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			edges, err := t.st.EdgesFrom(id, graph.EdgeCalls)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if _, seen := parent[e.Target]; seen {
					continue
				}
				parent[e.Target] = id
				if e.Target == dst.ID {
					return t.buildPath(parent, src.ID, dst.ID)
				}
				next = append(next, e.Target)
			}
		}
		frontier = next
	}

	return &PathResult{Found: false}, nil
}

func (t *Traverser) buildPath(parent map[string]string, srcID, dstID string) (*PathResult, error) {
	var ids []string
	for id := dstID; id != ""; id = parent[id] {
		ids = append(ids, id)
	}
	// Reverse into source-to-target order.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	path := make([]Node, 0, len(ids))
	for depth, id := range ids {
		n, err := t.st.GetNode(id)
		if err != nil {
			return nil, err
		}
		if n == nil {
			// Path ran through an unresolved reference; represent it by ID.
			path = append(path, Node{Name: id, Kind: graph.KindModule, Depth: depth, ID: id})
			continue
		}
		path = append(path, project(*n, depth, DetailStandard))
	}
	return &PathResult{Found: true, Length: len(path), Path: path}, nil
}

// walkFrom is the shared BFS: a visited set keyed by node ID guarantees
// termination on cyclic graphs, and each discovered node records the depth
// at which it was first reached.
func (t *Traverser) walkFrom(symbol string, maxDepth int, detail DetailLevel, neighbors func(id string) ([]string, error)) (*Result, error) {
	root, err := t.resolve(symbol)
	if err != nil {
		return nil, err
	}
	maxDepth = clampDepth(maxDepth)

	visited := map[string]bool{root.ID: true}
	frontier := []string{root.ID}
	var found []Node

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			ids, err := neighbors(id)
			if err != nil {
				return nil, err
			}
			for _, nid := range ids {
				if visited[nid] {
					continue
				}
				visited[nid] = true
				n, err := t.st.GetNode(nid)
				if err != nil {
					return nil, err
				}
				if n == nil {
					// Unresolved reference: report it but don't expand it.
					found = append(found, Node{Name: nid, Kind: graph.KindModule, Depth: depth})
					continue
				}
				found = append(found, project(*n, depth, detail))
				next = append(next, nid)
			}
		}
		frontier = next
	}

	return &Result{Root: project(*root, 0, detail), Nodes: found}, nil
}

// resolve looks the symbol up by ID or name and attaches suggestions when
// nothing matches.
func (t *Traverser) resolve(symbol string) (*graph.Node, error) {
	if symbol == "" {
		return nil, graph.InvalidInputError("symbol must not be empty")
	}
	n, err := t.st.GetNode(symbol)
	if err != nil {
		return nil, err
	}
	if n == nil {
		names, err := t.st.AllNames()
		if err != nil {
			return nil, err
		}
		return nil, graph.NotFoundError(fmt.Sprintf("symbol %q", symbol), graph.Suggest(symbol, names))
	}
	return n, nil
}

func clampDepth(d int) int {
	if d <= 0 {
		return DefaultDepth
	}
	if d > HardMaxDepth {
		return HardMaxDepth
	}
	return d
}

func project(n graph.Node, depth int, detail DetailLevel) Node {
	out := Node{
		Name:     n.Name,
		Kind:     n.Kind,
		FilePath: n.FilePath,
		Depth:    depth,
	}
	if detail == DetailSummary {
		return out
	}
	out.ID = n.ID
	out.StartLine = n.StartLine
	if detail == DetailStandard || detail == "" {
		return out
	}
	out.EndLine = n.EndLine
	out.Language = n.Language
	out.QualifiedName = n.QualifiedName
	out.Body = n.Body
	out.Documentation = n.Documentation
	return out
}
