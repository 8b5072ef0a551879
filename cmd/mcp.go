package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"codegraph/internal/assemble"
	"codegraph/internal/embedder"
	"codegraph/internal/indexer"
	"codegraph/internal/mcpserver"
	"codegraph/internal/rerank"
	"codegraph/internal/search"
	"codegraph/internal/tasks"
	"codegraph/internal/traverse"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the code graph tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	st, err := openStore(resolveDBPath(wd))
	if err != nil {
		return err
	}
	defer st.Close()

	log := newLogger()
	emb := embedder.New(cfg.OllamaURL, cfg.EmbedModel)
	rer := rerank.New(cfg.OllamaURL, cfg.RerankModel)

	searcher := search.New(st, emb, rer, log)
	trav := traverse.New(st)

	s := mcpserver.New(mcpserver.Deps{
		Store:       st,
		Searcher:    searcher,
		Traverser:   trav,
		Assembler:   assemble.New(st, searcher, trav),
		Tasks:       tasks.NewRegistry(tasks.DefaultTTL),
		Indexer:     indexer.New(st, languageRegistry(), emb, cfg.Workers, log),
		ProjectRoot: wd,
		Log:         log,
	})

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
