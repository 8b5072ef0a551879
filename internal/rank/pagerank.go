// Package rank computes structural importance (PageRank) and import cycles
// (Tarjan SCC) over the code graph.
package rank

import (
	"sort"

	"codegraph/internal/graph"
)

const (
	// DefaultDamping is the standard link-follow probability.
	DefaultDamping = 0.85
	// DefaultIterations is the fixed iteration count.
	DefaultIterations = 100
)

// Options configures PageRank.
type Options struct {
	Damping    float64
	Iterations int
}

func (o *Options) normalize() {
	if o.Damping <= 0 || o.Damping >= 1 {
		o.Damping = DefaultDamping
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
}

// Ranked is a node with its PageRank score.
type Ranked struct {
	Node  graph.Node `json:"node"`
	Score float64    `json:"score"`
}

// PageRank scores every stored node by iterating the standard update over
// the full directed graph (edges of any kind). Edges whose endpoints are
// not stored nodes are ignored. Dangling nodes redistribute their mass
// uniformly each iteration so the scores keep summing to 1.
func PageRank(nodes []graph.Node, edges []graph.Edge, opts Options) []Ranked {
	opts.normalize()

	n := len(nodes)
	if n == 0 {
		return nil
	}

	index := make(map[string]int, n)
	for i, node := range nodes {
		index[node.ID] = i
	}

	out := make([][]int, n)
	outDegree := make([]int, n)
	for _, e := range edges {
		src, ok := index[e.Source]
		if !ok {
			continue
		}
		dst, ok := index[e.Target]
		if !ok {
			continue
		}
		out[src] = append(out[src], dst)
		outDegree[src]++
	}

	scores := make([]float64, n)
	next := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}

	base := (1 - opts.Damping) / float64(n)
	for iter := 0; iter < opts.Iterations; iter++ {
		var danglingMass float64
		for i := range next {
			next[i] = base
		}
		for i, deg := range outDegree {
			if deg == 0 {
				danglingMass += scores[i]
				continue
			}
			share := scores[i] / float64(deg)
			for _, dst := range out[i] {
				next[dst] += opts.Damping * share
			}
		}
		if danglingMass > 0 {
			spread := opts.Damping * danglingMass / float64(n)
			for i := range next {
				next[i] += spread
			}
		}
		scores, next = next, scores
	}

	ranked := make([]Ranked, n)
	for i, node := range nodes {
		ranked[i] = Ranked{Node: node, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Node.ID < ranked[j].Node.ID
	})
	return ranked
}

// Top returns the k highest-ranked nodes.
func Top(nodes []graph.Node, edges []graph.Edge, k int, opts Options) []Ranked {
	ranked := PageRank(nodes, edges, opts)
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
