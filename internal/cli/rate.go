package cli

import (
	"github.com/spf13/cobra"

	"github.com/VanDung-dev/tableio/table"
)

func (a *app) rateCmd() *cobra.Command {
	var (
		rf         readFlags
		timeColumn string
		stride     float64
		start, end float64
	)

	cmd := &cobra.Command{
		Use:   "rate FILE",
		Short: "Print the event rate of an event table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, opts, err := rf.options(cmd.Flags())
			if err != nil {
				return err
			}
			t, err := a.registry.Read(cmd.Context(), table.KindEvent, args[0], rf.format, opts)
			if err != nil {
				return err
			}
			defer t.Release()

			rate, err := t.EventRate(timeColumn, stride, start, end)
			if err != nil {
				return err
			}
			defer rate.Release()
			return printTable(cmd.OutOrStdout(), rate, 0)
		},
	}
	rf.register(cmd.Flags())
	cmd.Flags().StringVar(&timeColumn, "time-column", table.DefaultTimeColumn, "column holding event times")
	cmd.Flags().Float64Var(&stride, "stride", 1, "bin width in seconds")
	cmd.Flags().Float64Var(&start, "gps-start", 0, "start of the first bin (default: first event)")
	cmd.Flags().Float64Var(&end, "gps-end", 0, "end of the last bin (default: last event)")
	return cmd
}
