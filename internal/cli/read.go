package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/table"
)

// readFlags are the flags shared by the commands that read tables.
type readFlags struct {
	format    string
	kind      string
	tree      string
	columns   []string
	selection []string
	start     int64
	stop      int64
	step      int64
}

func (f *readFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.format, "format", "", "input format (default: identified from the file name)")
	fs.StringVar(&f.kind, "kind", "table", "table kind: table or event")
	fs.StringVar(&f.tree, "tree", "", "ROOT tree to read (default: the only tree in the file)")
	fs.StringSliceVar(&f.columns, "columns", nil, "columns to read, in order")
	fs.StringArrayVar(&f.selection, "selection", nil, "row selection expression; repeat to AND several")
	fs.Int64Var(&f.start, "start", 0, "first ROOT entry to read")
	fs.Int64Var(&f.stop, "stop", -1, "ROOT entry to stop before (-1 reads to the end)")
	fs.Int64Var(&f.step, "step", 1, "read every step-th ROOT entry")
}

// options converts the flags that were set into registry options.
func (f *readFlags) options(fs *pflag.FlagSet) (table.Kind, registry.Options, error) {
	kind, err := table.ParseKind(f.kind)
	if err != nil {
		return "", nil, err
	}

	opts := registry.Options{}
	if f.tree != "" {
		opts["treename"] = f.tree
	}
	if len(f.columns) > 0 {
		opts["include_names"] = f.columns
	}
	if len(f.selection) > 0 {
		opts["selection"] = f.selection
	}
	for _, name := range []string{"start", "stop", "step"} {
		if !fs.Changed(name) {
			continue
		}
		v, _ := fs.GetInt64(name)
		opts[name] = v
	}
	return kind, opts, nil
}

func (a *app) readCmd() *cobra.Command {
	var rf readFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "read FILE",
		Short: "Print the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, opts, err := rf.options(cmd.Flags())
			if err != nil {
				return err
			}
			t, err := a.registry.Read(cmd.Context(), kind, args[0], rf.format, opts)
			if err != nil {
				return err
			}
			defer t.Release()
			return printTable(cmd.OutOrStdout(), t, limit)
		},
	}
	rf.register(cmd.Flags())
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "rows to print (0 prints all)")
	return cmd
}

// printTable writes up to limit rows of t as aligned columns followed by a
// summary line.
func printTable(out io.Writer, t *table.Table, limit int) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(t.ColumnNames(), "\t"))

	rows := int(t.NumRows())
	if limit > 0 && rows > limit {
		rows = limit
	}
	rec := t.Record()
	cells := make([]string, t.NumCols())
	for i := 0; i < rows; i++ {
		for j := range cells {
			cells[j] = rec.Column(j).ValueStr(i)
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "(%d of %d rows, %d columns, %s)\n", rows, t.NumRows(), t.NumCols(), t.Kind())
	return err
}
