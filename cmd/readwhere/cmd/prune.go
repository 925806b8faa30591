package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cedricziel/readwhere/internal/plugins/cbr"
	"github.com/cedricziel/readwhere/internal/plugins/cbz"
)

func init() {
	pruneCmd := &cobra.Command{
		Use:   "prune [plugin-id...]",
		Short: "Delete expired cache entries from plugin storage",
		Long:  `Remove expired cache rows for the given plugin ids. With no arguments the built-in plugins are pruned.`,
		RunE:  runPrune,
	}

	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	ids := args
	if len(ids) == 0 {
		ids = []string{cbz.PluginID, cbr.PluginID}
	}

	ctx := context.Background()
	var total int64
	for _, id := range ids {
		st, closeDB, err := openPluginStorage(ctx, id)
		if err != nil {
			return err
		}
		n, err := st.PruneExpired(ctx)
		closeDB()
		if err != nil {
			return fmt.Errorf("failed to prune cache for %s: %w", id, err)
		}
		total += n
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired cache entries.\n", total)
	return nil
}
