// Package indexer drives the full indexing pipeline: walk, hash, extract,
// resolve, persist, embed. It is the only writer of the store.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"codegraph/internal/embedder"
	"codegraph/internal/extract"
	"codegraph/internal/graph"
	"codegraph/internal/store"
	"codegraph/internal/walker"
)

const embedBatchSize = 32

// ProgressFunc reports pipeline progress to the caller.
type ProgressFunc func(phase string, done, total int)

// Stats reports indexing results.
type Stats struct {
	FilesTotal   int `json:"filesTotal"`
	FilesIndexed int `json:"filesIndexed"`
	FilesSkipped int `json:"filesSkipped"`
	FilesRemoved int `json:"filesRemoved"`
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	Unresolved   int `json:"unresolved"`
	Embedded     int `json:"embedded"`
}

// Indexer indexes a project tree into the store.
type Indexer struct {
	st        store.Store
	registry  *extract.Registry
	extractor *extract.Extractor
	emb       *embedder.Client // nil disables embeddings
	workers   int
	log       *slog.Logger
}

// New creates an Indexer. emb may be nil; the index is then keyword-only.
func New(st store.Store, registry *extract.Registry, emb *embedder.Client, workers int, log *slog.Logger) *Indexer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		st:        st,
		registry:  registry,
		extractor: extract.New(registry),
		emb:       emb,
		workers:   workers,
		log:       log,
	}
}

type extracted struct {
	relPath string
	hash    string
	result  *extract.FileResult
}

// Index walks root and brings the store up to date with it. Unchanged
// files (by content hash) are skipped; removed files are purged.
func (ix *Indexer) Index(ctx context.Context, root string, onProgress ProgressFunc) (*Stats, error) {
	if onProgress == nil {
		onProgress = func(string, int, int) {}
	}
	stats := &Stats{}
	onProgress("Scanning files...", 0, 0)

	var mu sync.Mutex
	seen := make(map[string]bool)
	var changed []extracted

	// The walker shares the group's context: if a worker fails or ctx is
	// cancelled, the walk goroutine stops instead of blocking on a channel
	// nobody drains.
	g, gctx := errgroup.WithContext(ctx)
	fileCh, walkErrCh := walker.Walk(gctx, root, ix.registry.Extensions())
	for range ix.workers {
		g.Go(func() error {
			for fi := range fileCh {
				if err := gctx.Err(); err != nil {
					return err
				}
				src, err := os.ReadFile(fi.Path)
				if err != nil {
					ix.log.Warn("skipping unreadable file", "path", fi.RelPath, "error", err)
					continue
				}
				sum := sha256.Sum256(src)
				hash := hex.EncodeToString(sum[:])

				mu.Lock()
				seen[fi.RelPath] = true
				stats.FilesTotal++
				total := stats.FilesTotal
				mu.Unlock()

				existing, err := ix.st.GetFileHash(fi.RelPath)
				if err != nil {
					return err
				}
				if existing == hash {
					mu.Lock()
					stats.FilesSkipped++
					mu.Unlock()
					continue
				}

				res, err := ix.extractor.Extract(fi.RelPath, src)
				if err != nil {
					ix.log.Warn("extraction failed", "path", fi.RelPath, "error", err)
					continue
				}
				if res == nil {
					continue
				}

				mu.Lock()
				changed = append(changed, extracted{relPath: fi.RelPath, hash: hash, result: res})
				done := len(changed)
				mu.Unlock()
				onProgress("Indexing files...", done, total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := <-walkErrCh; err != nil {
		return stats, fmt.Errorf("walk: %w", err)
	}

	// Deterministic persist order regardless of worker scheduling.
	sort.Slice(changed, func(i, j int) bool { return changed[i].relPath < changed[j].relPath })

	removed, err := ix.purgeRemoved(seen)
	if err != nil {
		return stats, err
	}
	stats.FilesRemoved = removed

	for _, c := range changed {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		// Replace, don't merge: stale symbols from the previous version of
		// the file must not survive.
		if err := ix.st.DeleteFile(c.relPath); err != nil {
			return stats, err
		}
		if err := ix.st.UpsertNodes(c.result.Nodes); err != nil {
			return stats, err
		}
		if err := ix.st.UpsertEdges(c.result.Contains); err != nil {
			return stats, err
		}
		if err := ix.st.UpsertFileHash(graph.FileHash{
			Path:     c.relPath,
			Hash:     c.hash,
			Language: c.result.Language,
		}); err != nil {
			return stats, err
		}
		stats.FilesIndexed++
		stats.Nodes += len(c.result.Nodes)
	}

	if err := ix.resolveRefs(ctx, changed, stats); err != nil {
		return stats, err
	}

	if ix.emb != nil && len(changed) > 0 {
		if err := ix.embedNodes(ctx, changed, stats, onProgress); err != nil {
			// Embeddings are an optional subsystem: log and degrade to a
			// keyword-only index instead of failing the run.
			ix.log.Warn("embedding unavailable, index is keyword-only", "error", err)
		}
	}

	return stats, nil
}

// purgeRemoved deletes store state for files that vanished from disk.
func (ix *Indexer) purgeRemoved(seen map[string]bool) (int, error) {
	files, err := ix.st.ListFiles()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if !seen[f.Path] {
			if err := ix.st.DeleteFile(f.Path); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// resolveRefs turns symbolic call/import refs into edges. Targets that
// resolve get the node's ID; the rest keep their specifier and are
// recorded as unresolved references.
func (ix *Indexer) resolveRefs(ctx context.Context, changed []extracted, stats *Stats) error {
	nodes, err := ix.st.GetAllNodes()
	if err != nil {
		return err
	}

	byName := make(map[string][]graph.Node)
	byPath := make(map[string]string) // file path -> module node ID
	for _, n := range nodes {
		byName[n.Name] = append(byName[n.Name], n)
		if n.Kind == graph.KindModule {
			byPath[n.FilePath] = n.ID
		}
	}
	for name := range byName {
		cands := byName[name]
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].Exported != cands[j].Exported {
				return cands[i].Exported
			}
			if len(cands[i].FilePath) != len(cands[j].FilePath) {
				return len(cands[i].FilePath) < len(cands[j].FilePath)
			}
			return cands[i].ID < cands[j].ID
		})
		byName[name] = cands
	}

	var edges []graph.Edge
	for _, c := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, call := range c.result.Calls {
			target := call.Target
			if cands, ok := byName[call.Target]; ok {
				target = cands[0].ID
			} else {
				if err := ix.st.InsertUnresolvedRef(graph.UnresolvedRef{
					Source:    call.FromID,
					Specifier: call.Target,
					RefType:   "call",
					FilePath:  c.relPath,
					Line:      call.Line,
				}); err != nil {
					return err
				}
				stats.Unresolved++
			}
			edges = append(edges, graph.Edge{
				Source:   call.FromID,
				Target:   target,
				Kind:     graph.EdgeCalls,
				FilePath: c.relPath,
				Line:     call.Line,
			})
		}
		for _, imp := range c.result.Imports {
			target := imp.Target
			if id, ok := resolveImport(byPath, c.relPath, imp.Target); ok {
				target = id
			} else {
				if err := ix.st.InsertUnresolvedRef(graph.UnresolvedRef{
					Source:    imp.FromID,
					Specifier: imp.Target,
					RefType:   "import",
					FilePath:  c.relPath,
					Line:      imp.Line,
				}); err != nil {
					return err
				}
				stats.Unresolved++
			}
			edges = append(edges, graph.Edge{
				Source:   imp.FromID,
				Target:   target,
				Kind:     graph.EdgeImports,
				FilePath: c.relPath,
				Line:     imp.Line,
			})
		}
	}

	if err := ix.st.UpsertEdges(edges); err != nil {
		return err
	}
	stats.Edges += len(edges)
	return nil
}

// embedNodes fetches embeddings for the changed files' symbols in batches.
func (ix *Indexer) embedNodes(ctx context.Context, changed []extracted, stats *Stats, onProgress ProgressFunc) error {
	var ids []string
	var texts []string
	for _, c := range changed {
		for _, n := range c.result.Nodes {
			if n.Body == "" {
				continue
			}
			ids = append(ids, n.ID)
			texts = append(texts, embeddingText(n))
		}
	}

	for i := 0; i < len(ids); i += embedBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+embedBatchSize, len(ids))
		vecs, err := ix.emb.Embed(ctx, texts[i:end])
		if err != nil {
			return err
		}
		if err := ix.st.UpsertEmbeddings(ids[i:end], vecs, ix.emb.Model()); err != nil {
			return err
		}
		stats.Embedded += end - i
		onProgress("Embedding symbols...", end, len(ids))
	}
	return nil
}

// embeddingText is the content sent to the embedding model for one symbol.
func embeddingText(n graph.Node) string {
	return fmt.Sprintf("// File: %s\n// %s: %s\n%s", n.FilePath, n.Kind, n.Name, n.Body)
}
