package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/VanDung-dev/tableio/rootarray"
)

func (a *app) treesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trees FILE...",
		Short: "List the trees of ROOT files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				trees, err := rootarray.ListTrees(path)
				if err != nil {
					return err
				}
				for _, tree := range trees {
					if len(args) > 1 {
						_, _ = fmt.Fprintf(out, "%s:%s\n", path, tree)
					} else {
						_, _ = fmt.Fprintln(out, tree)
					}
				}
				a.logger.Debug("listed trees", "file", path, "count", len(trees))
			}
			return nil
		},
	}
}
