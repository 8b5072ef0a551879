// Package search implements the hybrid retrieval pipeline: full-text
// lookups on expanded terms plus vector similarity, fused with Reciprocal
// Rank Fusion.
package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"codegraph/internal/expand"
	"codegraph/internal/graph"
	"codegraph/internal/store"
)

const (
	// rrfK is the RRF smoothing constant.
	rrfK = 60
	// originalWeight and expansionWeight bias fusion toward the user's
	// literal query over derived terms.
	originalWeight  = 1.0
	expansionWeight = 0.5
	// deepPoolSize is the candidate pool fetched before re-ranking.
	deepPoolSize = 30
)

// Embedder produces a query embedding. Optional: a nil Embedder degrades
// hybrid search to keyword-only.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker re-scores candidates with an external relevance model. Optional:
// any failure silently falls back to the fused ranking.
type Reranker interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Result is a search hit with its fused relevance score.
type Result struct {
	Node  graph.Node `json:"node"`
	Score float64    `json:"score"`
}

// Options filter and bound a search.
type Options struct {
	Limit    int
	Language string
	Kind     graph.NodeKind
}

// Searcher combines the store's shadow indexes with expansion and fusion.
type Searcher struct {
	st       store.Store
	embedder Embedder
	reranker Reranker
	log      *slog.Logger
}

// New creates a Searcher. embedder and reranker may be nil.
func New(st store.Store, embedder Embedder, reranker Reranker, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{st: st, embedder: embedder, reranker: reranker, log: log}
}

// Exact queries the full-text index on the raw term only. No expansion, no
// vector lookup; this is the sub-10ms path for exact-name lookups.
func (s *Searcher) Exact(query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, graph.InvalidInputError("query must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	hits, err := s.st.SearchText(query, limit)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Node: h.Node, Score: -h.Score} // bm25 rank is negative-better
	}
	return results, nil
}

// Hybrid expands the query, runs full-text lookups for the original term
// and each expansion, runs a vector lookup when an embedder is available,
// and fuses everything with RRF.
func (s *Searcher) Hybrid(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, graph.InvalidInputError("query must not be empty")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	pool := limit * 3
	if pool < deepPoolSize {
		pool = deepPoolSize
	}

	terms := expand.Expand(query)

	var lists []rankedList
	byID := make(map[string]graph.Node)

	for i, term := range terms {
		hits, err := s.st.SearchText(term, pool)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			continue
		}
		weight := originalWeight
		if i > 0 {
			weight = expansionWeight
		}
		lists = append(lists, newRankedList(hits, weight, byID))
	}

	if s.embedder != nil {
		vec, err := s.embedder.EmbedQuery(ctx, query)
		if err != nil {
			// Vector lookup is optional; keyword results still stand.
			s.log.Debug("query embedding unavailable, keyword-only search", "error", err)
		} else {
			hits, err := s.st.SearchVector(vec, pool)
			if err != nil {
				s.log.Debug("vector index unavailable, keyword-only search", "error", err)
			} else if len(hits) > 0 {
				lists = append(lists, newRankedList(hits, originalWeight, byID))
			}
		}
	}

	fused := fuse(lists, rrfK)

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		n := byID[f.id]
		if opts.Language != "" && !strings.EqualFold(n.Language, opts.Language) {
			continue
		}
		if opts.Kind != "" && n.Kind != opts.Kind {
			continue
		}
		results = append(results, Result{Node: n, Score: f.score})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// Deep runs Hybrid over a larger candidate pool and re-scores the top
// results with the external relevance model. If the model is unavailable
// the plain fused ranking is returned unchanged — a quality degradation,
// never an error.
func (s *Searcher) Deep(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}
	candidates, err := s.Hybrid(ctx, query, Options{Limit: deepPoolSize})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 || s.reranker == nil {
		return truncate(candidates, limit), nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = rerankDocument(c.Node)
	}
	scores, err := s.reranker.Score(ctx, query, docs)
	if err != nil || len(scores) != len(candidates) {
		s.log.Debug("reranker unavailable, returning fused ranking", "error", err)
		return truncate(candidates, limit), nil
	}

	for i := range candidates {
		candidates[i].Score = scores[i]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return truncate(candidates, limit), nil
}

func truncate(results []Result, limit int) []Result {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

// rerankDocument is the text shown to the relevance model for one candidate.
func rerankDocument(n graph.Node) string {
	var b strings.Builder
	b.WriteString(string(n.Kind))
	b.WriteByte(' ')
	b.WriteString(n.Name)
	if n.Signature != "" {
		b.WriteByte('\n')
		b.WriteString(n.Signature)
	}
	if n.Documentation != "" {
		b.WriteByte('\n')
		b.WriteString(n.Documentation)
	}
	return b.String()
}

func newRankedList(hits []store.Hit, weight float64, byID map[string]graph.Node) rankedList {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Node.ID
		if _, ok := byID[h.Node.ID]; !ok {
			byID[h.Node.ID] = h.Node
		}
	}
	return rankedList{ids: ids, weight: weight}
}
