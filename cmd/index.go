package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"codegraph/internal/embedder"
	"codegraph/internal/indexer"
	"codegraph/internal/tui"
)

var (
	flagWorkers int
	flagTUI     bool
	flagNoEmbed bool
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a codebase into the code graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		st, err := createStore(resolveDBPath(root))
		if err != nil {
			return err
		}
		defer st.Close()

		var emb *embedder.Client
		if !flagNoEmbed {
			emb = embedder.New(cfg.OllamaURL, cfg.EmbedModel)
		}

		workers := flagWorkers
		if workers == 0 {
			workers = cfg.Workers
		}
		ix := indexer.New(st, languageRegistry(), emb, workers, newLogger())

		if flagTUI {
			_, err := tui.RunIndex(func(onProgress indexer.ProgressFunc) (*indexer.Stats, error) {
				return ix.Index(context.Background(), root, onProgress)
			})
			return err
		}

		fmt.Printf("Indexing %s...\n", root)
		start := time.Now()

		stats, err := ix.Index(context.Background(), root, nil)
		elapsed := time.Since(start)

		if stats != nil {
			fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
			fmt.Printf("  Files:   %d total, %d indexed, %d skipped, %d removed\n",
				stats.FilesTotal, stats.FilesIndexed, stats.FilesSkipped, stats.FilesRemoved)
			fmt.Printf("  Symbols: %d (%d embedded)\n", stats.Nodes, stats.Embedded)
			fmt.Printf("  Edges:   %d (%d unresolved refs)\n", stats.Edges, stats.Unresolved)
		}

		return err
	},
}

func init() {
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel workers (default: number of CPUs)")
	indexCmd.Flags().BoolVar(&flagTUI, "tui", false, "show interactive progress")
	indexCmd.Flags().BoolVar(&flagNoEmbed, "no-embed", false, "skip embeddings, build a keyword-only index")
	rootCmd.AddCommand(indexCmd)
}
