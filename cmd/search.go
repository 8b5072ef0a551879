package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codegraph/internal/embedder"
	"codegraph/internal/graph"
	"codegraph/internal/rerank"
	"codegraph/internal/search"
)

var (
	flagLimit    int
	flagLanguage string
	flagKind     string
	flagDeep     bool
	flagExact    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed code graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		st, err := openStore(resolveDBPath(wd))
		if err != nil {
			return err
		}
		defer st.Close()

		emb := embedder.New(cfg.OllamaURL, cfg.EmbedModel)
		var rer search.Reranker
		if flagDeep {
			rer = rerank.New(cfg.OllamaURL, cfg.RerankModel)
		}
		searcher := search.New(st, emb, rer, newLogger())

		ctx := context.Background()
		var results []search.Result
		switch {
		case flagExact:
			results, err = searcher.Exact(query, flagLimit)
		case flagDeep:
			results, err = searcher.Deep(ctx, query, flagLimit)
		default:
			results, err = searcher.Hybrid(ctx, query, search.Options{
				Limit:    flagLimit,
				Language: flagLanguage,
				Kind:     graph.NodeKind(flagKind),
			})
		}
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Printf("No results for %q\n", query)
			return nil
		}
		for i, r := range results {
			n := r.Node
			fmt.Printf("%2d. %-9s %-30s %s:%d\n", i+1, n.Kind, n.Name, n.FilePath, n.StartLine)
			if n.Signature != "" {
				fmt.Printf("    %s\n", n.Signature)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagLimit, "limit", 10, "maximum results")
	searchCmd.Flags().StringVar(&flagLanguage, "language", "", "filter by language")
	searchCmd.Flags().StringVar(&flagKind, "kind", "", "filter by symbol kind")
	searchCmd.Flags().BoolVar(&flagDeep, "deep", false, "re-rank results with the relevance model")
	searchCmd.Flags().BoolVar(&flagExact, "exact", false, "match the query verbatim, no expansion or semantic lookup")
	rootCmd.AddCommand(searchCmd)
}
