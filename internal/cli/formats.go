package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List registered formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FORMAT\tKIND\tREAD\tWRITE\tIDENTIFY")
			for _, fi := range a.registry.Formats() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", fi.Format, fi.Kind, yesNo(fi.CanRead), yesNo(fi.CanWrite), yesNo(fi.CanIdentify))
			}
			return w.Flush()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
