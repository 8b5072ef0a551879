// Package assemble composes search, traversal, and ranking output into a
// token-budgeted context answer. Content is organized in priority tiers and
// appended in order until the budget runs out.
package assemble

import (
	"context"
	"fmt"
	"strings"

	"codegraph/internal/graph"
	"codegraph/internal/rank"
	"codegraph/internal/search"
	"codegraph/internal/store"
	"codegraph/internal/tokens"
	"codegraph/internal/traverse"
)

const (
	// DefaultBudget is the token budget when the caller passes none.
	DefaultBudget = 8000
	// MaxBudget caps the effective budget after detail scaling.
	MaxBudget = 100000

	seedLimit       = 10
	backgroundLimit = 15
)

// Result is the assembled context.
type Result struct {
	Text       string   `json:"text"`
	TokensUsed int      `json:"tokensUsed"`
	Budget     int      `json:"budget"`
	Tiers      []string `json:"tiers"`
}

// Assembler orchestrates the retrieval components.
type Assembler struct {
	st       store.Store
	searcher *search.Searcher
	trav     *traverse.Traverser
}

func New(st store.Store, searcher *search.Searcher, trav *traverse.Traverser) *Assembler {
	return &Assembler{st: st, searcher: searcher, trav: trav}
}

// Assemble answers the query within the token budget. The detail level
// scales the effective budget: summary halves it, full doubles it.
func (a *Assembler) Assemble(ctx context.Context, query string, budget int, detail traverse.DetailLevel) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, graph.InvalidInputError("query must not be empty")
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	switch detail {
	case traverse.DetailSummary:
		budget /= 2
	case traverse.DetailFull:
		budget *= 2
	}
	if budget > MaxBudget {
		budget = MaxBudget
	}

	seeds, err := a.searcher.Hybrid(ctx, query, search.Options{Limit: seedLimit})
	if err != nil {
		return nil, err
	}

	included := make(map[string]bool)
	for _, s := range seeds {
		included[s.Node.ID] = true
	}

	near, extended := a.expandTiers(seeds, included)

	res := &Result{Budget: budget}
	remaining := budget

	remaining = a.appendTier(res, "core", renderCore(query, seeds, detail), remaining)
	remaining = a.appendTier(res, "near", renderNeighbors("Tier 2: Direct relationships", near), remaining)
	remaining = a.appendTier(res, "extended", renderNeighbors("Tier 3: Extended neighborhood", extended), remaining)

	if remaining > 0 {
		background, err := a.renderBackground(included)
		if err == nil && background != "" {
			remaining = a.appendTier(res, "background", background, remaining)
		}
	}

	res.TokensUsed = budget - remaining
	return res, nil
}

// appendTier fits the rendered tier into the remaining budget at whole-line
// boundaries. An oversized first line is only admitted when nothing has
// been emitted yet, so the caller never gets an empty result; later tiers
// that cannot fit a single line are dropped.
func (a *Assembler) appendTier(res *Result, name, rendered string, remaining int) int {
	if rendered == "" || remaining <= 0 {
		return remaining
	}
	fitted := tokens.TruncateToFit(rendered, remaining)
	if fitted == "" {
		return remaining
	}
	cost := tokens.Estimate(fitted)
	if cost > remaining && res.Text != "" {
		return remaining
	}
	if res.Text != "" {
		res.Text += "\n\n"
	}
	res.Text += fitted
	res.Tiers = append(res.Tiers, name)
	remaining -= cost
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// expandTiers walks one hop from each seed for the near tier, then one
// further hop for the extended tier.
func (a *Assembler) expandTiers(seeds []search.Result, included map[string]bool) (near, extended []traverse.Node) {
	collect := func(dst *[]traverse.Node, nodes []traverse.Node, wantDepth int) []string {
		var ids []string
		for _, n := range nodes {
			if n.Depth != wantDepth || n.ID == "" || included[n.ID] {
				continue
			}
			included[n.ID] = true
			*dst = append(*dst, n)
			ids = append(ids, n.ID)
		}
		return ids
	}

	walk := func(id string, depth int) []traverse.Node {
		var all []traverse.Node
		for _, f := range []func(string, int, traverse.DetailLevel) (*traverse.Result, error){
			a.trav.Callers, a.trav.Callees, a.trav.Dependencies,
		} {
			if r, err := f(id, depth, traverse.DetailStandard); err == nil {
				all = append(all, r.Nodes...)
			}
		}
		return all
	}

	var frontier []string
	for _, s := range seeds {
		frontier = append(frontier, collect(&near, walk(s.Node.ID, 1), 1)...)
	}
	for _, id := range frontier {
		collect(&extended, walk(id, 1), 1)
	}
	return near, extended
}

func renderCore(query string, seeds []search.Result, detail traverse.DetailLevel) string {
	if len(seeds) == 0 {
		return fmt.Sprintf("## Tier 1: Core matches\n\nNo symbols matched %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Tier 1: Core matches for %q\n", query)
	for _, s := range seeds {
		n := s.Node
		fmt.Fprintf(&b, "\n### %s %s — %s:%d\n", n.Kind, n.Name, n.FilePath, n.StartLine)
		switch {
		case detail == traverse.DetailSummary || n.Body == "":
			if sig := signatureOf(n); sig != "" {
				fmt.Fprintf(&b, "    %s\n", sig)
			}
		default:
			if n.Documentation != "" && detail == traverse.DetailFull {
				fmt.Fprintf(&b, "%s\n", n.Documentation)
			}
			fmt.Fprintf(&b, "```%s\n%s\n```\n", strings.ToLower(n.Language), n.Body)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderNeighbors(title string, nodes []traverse.Node) string {
	if len(nodes) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", title)
	for _, n := range nodes {
		fmt.Fprintf(&b, "- %s %s — %s:%d\n", n.Kind, n.Name, n.FilePath, n.StartLine)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderBackground is the signature-only project overview built from the
// highest-ranked symbols that are not already part of an earlier tier.
func (a *Assembler) renderBackground(included map[string]bool) (string, error) {
	nodes, err := a.st.GetAllNodes()
	if err != nil {
		return "", err
	}
	edges, err := a.st.GetAllEdges()
	if err != nil {
		return "", err
	}

	ranked := rank.Top(nodes, edges, backgroundLimit+len(included), rank.Options{})
	var b strings.Builder
	b.WriteString("## Tier 4: Project background\n")
	written := 0
	for _, r := range ranked {
		if included[r.Node.ID] {
			continue
		}
		sig := signatureOf(r.Node)
		if sig == "" {
			sig = r.Node.Name
		}
		fmt.Fprintf(&b, "- %s (%s)\n", sig, r.Node.FilePath)
		written++
		if written == backgroundLimit {
			break
		}
	}
	if written == 0 {
		return "", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func signatureOf(n graph.Node) string {
	if n.Signature != "" {
		return n.Signature
	}
	return tokens.Signature(n.Body)
}
