package rank

import (
	"sort"

	"codegraph/internal/graph"
)

// Cycle is one circular-import component.
type Cycle struct {
	Members []string `json:"members"`
	Size    int      `json:"size"`
}

// ImportCycles runs Tarjan's strongly-connected-components algorithm over
// the Imports subgraph in a single DFS pass and reports every component of
// size >= 2, plus size-1 components with a self-loop. Edges of other kinds
// are ignored by the caller; this function assumes import edges only.
func ImportCycles(edges []graph.Edge) []Cycle {
	adj := make(map[string][]string)
	selfLoop := make(map[string]bool)
	vertexSet := make(map[string]bool)
	for _, e := range edges {
		if e.Kind != graph.EdgeImports {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		vertexSet[e.Source] = true
		vertexSet[e.Target] = true
		if e.Source == e.Target {
			selfLoop[e.Source] = true
		}
	}

	vertices := make([]string, 0, len(vertexSet))
	for v := range vertexSet {
		vertices = append(vertices, v)
	}
	sort.Strings(vertices) // deterministic component order

	t := &tarjanState{
		adj:     adj,
		indexOf: make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, v := range vertices {
		if _, seen := t.indexOf[v]; !seen {
			t.strongConnect(v)
		}
	}

	var cycles []Cycle
	for _, comp := range t.components {
		if len(comp) >= 2 || (len(comp) == 1 && selfLoop[comp[0]]) {
			sort.Strings(comp)
			cycles = append(cycles, Cycle{Members: comp, Size: len(comp)})
		}
	}
	return cycles
}

type tarjanState struct {
	adj        map[string][]string
	counter    int
	indexOf    map[string]int
	lowlink    map[string]int
	stack      []string
	onStack    map[string]bool
	components [][]string
}

func (t *tarjanState) strongConnect(v string) {
	t.indexOf[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, seen := t.indexOf[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.indexOf[w] < t.lowlink[v] {
				t.lowlink[v] = t.indexOf[w]
			}
		}
	}

	if t.lowlink[v] == t.indexOf[v] {
		var comp []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, comp)
	}
}
