// Package mcpserver exposes the code graph over the Model Context Protocol.
// Every tool returns a structured JSON payload; failures come back as
// `{"error": ...}` tool errors rather than protocol errors, so a client can
// always show the message.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"codegraph/internal/assemble"
	"codegraph/internal/graph"
	"codegraph/internal/indexer"
	"codegraph/internal/rank"
	"codegraph/internal/search"
	"codegraph/internal/store"
	"codegraph/internal/tasks"
	"codegraph/internal/traverse"
)

// Deps carries the wired components the tools operate on.
type Deps struct {
	Store       store.Store
	Searcher    *search.Searcher
	Traverser   *traverse.Traverser
	Assembler   *assemble.Assembler
	Tasks       *tasks.Registry
	Indexer     *indexer.Indexer // nil disables index_project
	ProjectRoot string
	Log         *slog.Logger
}

// New builds the MCP server with all tools registered.
func New(deps Deps) *server.MCPServer {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	s := server.NewMCPServer("codegraph", "1.0.0", server.WithToolCapabilities(false))

	s.AddTool(searchTool(), makeSearchHandler(deps))
	s.AddTool(deepSearchTool(), makeDeepSearchHandler(deps))
	s.AddTool(callersTool(), makeWalkHandler(deps, "get_callers"))
	s.AddTool(calleesTool(), makeWalkHandler(deps, "get_callees"))
	s.AddTool(dependenciesTool(), makeWalkHandler(deps, "get_dependencies"))
	s.AddTool(findPathTool(), makeFindPathHandler(deps))
	s.AddTool(structureTool(), makeStructureHandler(deps))
	s.AddTool(circularImportsTool(), makeCircularImportsHandler(deps))
	s.AddTool(contextTool(), makeContextHandler(deps))
	s.AddTool(statsTool(), makeStatsHandler(deps))

	if deps.Indexer != nil {
		s.AddTool(indexProjectTool(), makeIndexProjectHandler(deps))
	}
	s.AddTool(taskStatusTool(), makeTaskStatusHandler(deps))
	s.AddTool(cancelTaskTool(), makeCancelTaskHandler(deps))

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Search the code graph with hybrid keyword + semantic retrieval. Query expansion covers abbreviations, synonyms, and compound identifiers."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or identifier query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default 10)"),
		),
		mcp.WithString("language",
			mcp.Description("Optional language filter, e.g. 'go' or 'python'"),
		),
		mcp.WithString("kind",
			mcp.Description("Optional symbol kind filter, e.g. 'function', 'class', 'interface'"),
		),
		mcp.WithBoolean("exact",
			mcp.Description("Match the query verbatim against the full-text index, skipping expansion and semantic lookup"),
		),
	)
}

func deepSearchTool() mcp.Tool {
	return mcp.NewTool("deep_search",
		mcp.WithDescription("Search with an extra re-ranking pass by a local relevance model. Slower but more precise; falls back to plain hybrid ranking when the model is unavailable."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or identifier query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default 10)"),
		),
	)
}

func callersTool() mcp.Tool {
	return walkTool("get_callers", "Find every function that calls the given symbol, walking the call graph in reverse up to the given depth.")
}

func calleesTool() mcp.Tool {
	return walkTool("get_callees", "Find every function the given symbol calls, walking the call graph forward up to the given depth.")
}

func dependenciesTool() mcp.Tool {
	return walkTool("get_dependencies", "Find what the given symbol imports or references, walking dependency edges up to the given depth.")
}

func walkTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Symbol name or node ID to start from"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Maximum traversal depth (default 3, capped at 50)"),
		),
		mcp.WithString("detail",
			mcp.Description("Detail level per node: 'summary', 'standard' (default), or 'full'"),
		),
	)
}

func findPathTool() mcp.Tool {
	return mcp.NewTool("find_path",
		mcp.WithDescription("Find the shortest call path between two symbols, if one exists."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Source symbol name or node ID"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Target symbol name or node ID"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Maximum path length to consider (default 3, capped at 50)"),
		),
	)
}

func structureTool() mcp.Tool {
	return mcp.NewTool("get_structure",
		mcp.WithDescription("Get the structurally most important symbols in the project, ranked by PageRank over the code graph."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Description("Optional path prefix to scope the overview to a subtree, e.g. 'src/api'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("How many symbols to return (default 20)"),
		),
	)
}

func circularImportsTool() mcp.Tool {
	return mcp.NewTool("circular_imports",
		mcp.WithDescription("Detect circular import chains between files. An empty list means the import graph is acyclic."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func contextTool() mcp.Tool {
	return mcp.NewTool("get_context",
		mcp.WithDescription("Assemble a token-budgeted context bundle for a question: best matches with code, their direct relationships, and project background."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The question or topic to gather context for"),
		),
		mcp.WithNumber("budget",
			mcp.Description("Token budget for the answer (default 8000, capped at 100000)"),
		),
		mcp.WithString("detail",
			mcp.Description("Detail level: 'summary', 'standard' (default), or 'full'"),
		),
	)
}

func statsTool() mcp.Tool {
	return mcp.NewTool("get_stats",
		mcp.WithDescription("Get index statistics: node, edge, and file counts, embedding coverage, and unresolved references."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func indexProjectTool() mcp.Tool {
	return mcp.NewTool("index_project",
		mcp.WithDescription("Re-index the project in the background. Returns a task ID to poll with task_status."),
		mcp.WithString("path",
			mcp.Description("Project root to index (default: the configured project root)"),
		),
	)
}

func taskStatusTool() mcp.Tool {
	return mcp.NewTool("task_status",
		mcp.WithDescription("Get the state and progress of a background task. A completed task's result is included once, on the first poll that sees it."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Task ID returned by index_project"),
		),
	)
}

func cancelTaskTool() mcp.Tool {
	return mcp.NewTool("cancel_task",
		mcp.WithDescription("Request cancellation of a running background task. The task stops at its next safe point."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Task ID to cancel"),
		),
	)
}

// --- Handler factories ---

func makeSearchHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if req.GetBool("exact", false) {
			results, err := deps.Searcher.Exact(query, req.GetInt("limit", 10))
			if err != nil {
				return toolError(err), nil
			}
			return jsonResult(map[string]any{"query": query, "results": results})
		}
		opts := search.Options{
			Limit:    req.GetInt("limit", 10),
			Language: req.GetString("language", ""),
			Kind:     graph.NodeKind(req.GetString("kind", "")),
		}
		results, err := deps.Searcher.Hybrid(ctx, query, opts)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"query": query, "results": results})
	}
}

func makeDeepSearchHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		results, err := deps.Searcher.Deep(ctx, query, req.GetInt("limit", 10))
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"query": query, "results": results})
	}
}

func makeWalkHandler(deps Deps, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol := req.GetString("symbol", "")
		depth := req.GetInt("depth", 0)
		detail, err := parseDetail(req.GetString("detail", ""))
		if err != nil {
			return toolError(err), nil
		}

		var res *traverse.Result
		switch name {
		case "get_callers":
			res, err = deps.Traverser.Callers(symbol, depth, detail)
		case "get_callees":
			res, err = deps.Traverser.Callees(symbol, depth, detail)
		default:
			res, err = deps.Traverser.Dependencies(symbol, depth, detail)
		}
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(res)
	}
}

func makeFindPathHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := deps.Traverser.FindPath(
			req.GetString("from", ""),
			req.GetString("to", ""),
			req.GetInt("depth", 0),
		)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(res)
	}
}

func makeStructureHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		prefix := req.GetString("path", "")
		nodes, err := deps.Store.GetAllNodes()
		if err != nil {
			return toolError(err), nil
		}
		if prefix != "" {
			scoped := make([]graph.Node, 0, len(nodes))
			for _, n := range nodes {
				if strings.HasPrefix(n.FilePath, prefix) {
					scoped = append(scoped, n)
				}
			}
			nodes = scoped
		}
		edges, err := deps.Store.GetAllEdges()
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"symbols": rank.Top(nodes, edges, limit, rank.Options{})})
	}
}

func makeCircularImportsHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		edges, err := deps.Store.EdgesOfKind(graph.EdgeImports)
		if err != nil {
			return toolError(err), nil
		}
		cycles := rank.ImportCycles(edges)
		return jsonResult(map[string]any{"cycles": cycles, "count": len(cycles)})
	}
}

func makeContextHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		detail, err := parseDetail(req.GetString("detail", ""))
		if err != nil {
			return toolError(err), nil
		}
		res, err := deps.Assembler.Assemble(ctx, req.GetString("query", ""), req.GetInt("budget", 0), detail)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(res)
	}
}

func makeStatsHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.Store.GetStats()
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(stats)
	}
}

func makeIndexProjectHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		root := req.GetString("path", deps.ProjectRoot)
		if root == "" {
			return toolError(graph.InvalidInputError("no project root configured; pass 'path'")), nil
		}

		h := deps.Tasks.Begin(fmt.Sprintf("index %s", root))
		go runIndexTask(deps, h, root)

		return jsonResult(map[string]any{"taskId": h.ID(), "state": tasks.StateWorking})
	}
}

// runIndexTask drives one background indexing run, bridging the registry's
// cooperative cancel flag to the pipeline's context.
func runIndexTask(deps Deps, h *tasks.Handle, root string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if h.Cancelled() {
					cancel()
					return
				}
			}
		}
	}()

	stats, err := deps.Indexer.Index(ctx, root, func(phase string, done, total int) {
		pct := 0
		if total > 0 {
			pct = done * 100 / total
		}
		h.SetProgress(pct, phase)
	})
	switch {
	case h.Cancelled():
		h.MarkCancelled()
	case err != nil:
		deps.Log.Error("background index failed", "task", h.ID(), "error", err)
		h.Fail(err)
	default:
		if err := h.Complete(stats); err != nil {
			h.Fail(err)
		}
	}
}

func makeTaskStatusHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(req.GetInt("id", 0))
		snap, ok := deps.Tasks.Get(id)
		if !ok {
			return toolError(graph.NotFoundError(fmt.Sprintf("task %d", id), nil)), nil
		}

		payload := map[string]any{"task": snap}
		if snap.State == tasks.StateCompleted {
			if result, err := deps.Tasks.TakeResult(id); err == nil && result != "" {
				payload["result"] = json.RawMessage(result)
			}
		}
		return jsonResult(payload)
	}
}

func makeCancelTaskHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(req.GetInt("id", 0))
		if err := deps.Tasks.Cancel(id); err != nil {
			return toolError(err), nil
		}
		return jsonResult(map[string]any{"taskId": id, "cancelRequested": true})
	}
}

// --- Result helpers ---

func parseDetail(s string) (traverse.DetailLevel, error) {
	switch traverse.DetailLevel(s) {
	case "", traverse.DetailStandard:
		return traverse.DetailStandard, nil
	case traverse.DetailSummary:
		return traverse.DetailSummary, nil
	case traverse.DetailFull:
		return traverse.DetailFull, nil
	}
	return "", graph.InvalidInputError(fmt.Sprintf("unknown detail level %q (want summary, standard, or full)", s))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError encodes a failure as a structured tool error so clients always
// get a displayable payload. Not-found errors carry name suggestions.
func toolError(err error) *mcp.CallToolResult {
	payload := map[string]any{"error": err.Error()}
	if kind := graph.KindOf(err); kind != "" {
		payload["kind"] = kind
	}
	if suggestions := graph.SuggestionsOf(err); len(suggestions) > 0 {
		payload["suggestions"] = suggestions
	}
	data, mErr := json.Marshal(payload)
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}
