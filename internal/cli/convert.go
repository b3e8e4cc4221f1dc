package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/VanDung-dev/tableio/format"
	"github.com/VanDung-dev/tableio/registry"
)

func (a *app) convertCmd() *cobra.Command {
	var (
		rf        readFlags
		to        string
		outDir    string
		writeOpts map[string]string
	)

	cmd := &cobra.Command{
		Use:   "convert FILE...",
		Short: "Convert files to another format",
		Long: `Convert reads every input file as a table and writes it next to the others
in --out-dir, with the extension of the target format. Inputs are converted
concurrently, up to --jobs at a time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, ok := format.Extension(to)
			if !ok {
				return fmt.Errorf("unknown target format %q (expected one of %s)", to, strings.Join(format.Names(), ", "))
			}
			kind, ropts, err := rf.options(cmd.Flags())
			if err != nil {
				return err
			}
			wopts := registry.Options{}
			for k, v := range writeOpts {
				wopts[k] = v
			}

			outputs, err := outputPaths(args, outDir, ext)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}

			stop := a.startMetrics()
			defer stop()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(a.cfg.Jobs)
			for i, in := range args {
				out := outputs[i]
				g.Go(func() error {
					t, err := a.registry.Read(ctx, kind, in, rf.format, ropts.Clone())
					if err != nil {
						return err
					}
					defer t.Release()

					if err := a.registry.Write(ctx, t, out, to, wopts.Clone()); err != nil {
						return err
					}
					a.metrics.FilesConverted.Inc()
					a.logger.Info("converted", "input", in, "output", out, "rows", t.NumRows())
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
					return nil
				})
			}
			return g.Wait()
		},
	}

	rf.register(cmd.Flags())
	cmd.Flags().StringVar(&to, "to", "", "target format: "+strings.Join(format.Names(), ", "))
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory the converted files are written to")
	cmd.Flags().StringToStringVar(&writeOpts, "write-opt", nil, "writer option key=value, e.g. treename=events or compression=zstd")
	cmd.Flags().Int("jobs", 4, "files converted concurrently")
	_ = cmd.MarkFlagRequired("to")
	a.mustBindPFlag("jobs", cmd.Flags().Lookup("jobs"))
	return cmd
}

// outputPaths maps every input to its file in outDir with extension ext.
// Two inputs mapping to the same output are an error.
func outputPaths(inputs []string, outDir, ext string) ([]string, error) {
	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+ext)
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, in, out)
		}
		seen[out] = in
		outputs[i] = out
	}
	return outputs, nil
}
