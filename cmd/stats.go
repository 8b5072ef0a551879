package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		st, err := openStore(resolveDBPath(wd))
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Nodes:           %d\n", stats.Nodes)
		fmt.Printf("Edges:           %d\n", stats.Edges)
		fmt.Printf("Files:           %d\n", stats.Files)
		fmt.Printf("Embeddings:      %d\n", stats.Embeddings)
		fmt.Printf("Unresolved refs: %d\n", stats.UnresolvedRefs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
