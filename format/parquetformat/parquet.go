// Package parquetformat reads and writes tables as Parquet files.
package parquetformat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"

	"github.com/VanDung-dev/tableio/format/internal/readopts"
	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

// Name is the registry format name.
const Name = "parquet"

// Extension is the file extension the identifier recognizes.
const Extension = ".parquet"

// columnOrderKey stores the original column order; parquet groups sort
// their fields by name.
const columnOrderKey = "tableio.columns"

const readBatch = 256

// Codec holds the Parquet reader and writer.
type Codec struct {
	mem    memory.Allocator
	logger *slog.Logger
}

// New creates a codec logging to logger.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{mem: memory.DefaultAllocator, logger: logger.With("component", "parquetformat")}
}

// Register binds the "parquet" format for every table kind.
func Register(reg *registry.Registry) error {
	c := New(reg.Logger())
	return reg.RegisterFormat(Name, table.Kinds(), c.Read, c.Write, registry.IdentifyExtension(Extension))
}

type column struct {
	name  string
	index int // leaf column index in the parquet schema
	list  bool
	arr   arrow.Array
}

// Write writes the table as one Parquet file.
// Recognized options: compression (snappy, zstd, gzip or none).
func (c *Codec) Write(ctx context.Context, t *table.Table, dest string, opts registry.Options) error {
	codec, err := opts.String("compression")
	if err != nil {
		return err
	}
	opts.Pop("compression")
	if err := readopts.RejectRest("write parquet", opts); err != nil {
		return err
	}

	var compression parquet.WriterOption
	switch strings.ToLower(codec) {
	case "", "snappy":
		compression = parquet.Compression(&parquet.Snappy)
	case "zstd":
		compression = parquet.Compression(&parquet.Zstd)
	case "gzip":
		compression = parquet.Compression(&parquet.Gzip)
	case "none":
		compression = parquet.Compression(&parquet.Uncompressed)
	default:
		return &tableerr.InvalidOptionError{Key: "compression", Err: fmt.Errorf("unknown codec %q", codec)}
	}

	rec := t.Record()
	group := make(parquet.Group, rec.NumCols())
	names := make([]string, rec.NumCols())
	for i, field := range rec.Schema().Fields() {
		node, err := fieldNode(field.Type)
		if err != nil {
			return &tableerr.UnsupportedColumnError{Column: field.Name, Type: field.Type.String()}
		}
		if _, dup := group[field.Name]; dup {
			return fmt.Errorf("duplicate column %q", field.Name)
		}
		group[field.Name] = node
		names[i] = field.Name
	}
	schema := parquet.NewSchema("table", group)

	cols := make([]column, len(names))
	for i, name := range names {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("column %q missing from parquet schema", name)
		}
		_, list := rec.Column(i).(*array.List)
		cols[i] = column{name: name, index: leaf.ColumnIndex, list: list, arr: rec.Column(i)}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].index < cols[j].index })

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	w := parquet.NewWriter(f, schema, compression,
		parquet.KeyValueMetadata(columnOrderKey, strings.Join(names, "\x1f")))

	rows := make([]parquet.Row, 0, readBatch)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := w.WriteRows(rows); err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		rows = rows[:0]
		return ctx.Err()
	}

	for i := 0; i < int(rec.NumRows()); i++ {
		row := make(parquet.Row, 0, len(cols))
		for _, col := range cols {
			row = appendRow(row, col, i)
		}
		rows = append(rows, row)
		if len(rows) == readBatch {
			if err := flush(); err != nil {
				_ = w.Close()
				return err
			}
		}
	}
	if err := flush(); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	c.logger.Debug("wrote", "dest", dest, "rows", rec.NumRows(), "compression", codec)
	return f.Close()
}

// appendRow appends the values of row i of col with their levels.
func appendRow(row parquet.Row, col column, i int) parquet.Row {
	if !col.list {
		v := toValue(col.arr, i)
		def := 1
		if v.IsNull() {
			def = 0
		}
		return append(row, v.Level(0, def, col.index))
	}

	lst := col.arr.(*array.List)
	if lst.IsNull(i) {
		return append(row, parquet.NullValue().Level(0, 0, col.index))
	}
	beg, end := lst.ValueOffsets(i)
	if beg == end {
		return append(row, parquet.NullValue().Level(0, 0, col.index))
	}
	values := lst.ListValues()
	for j := beg; j < end; j++ {
		rep := 1
		if j == beg {
			rep = 0
		}
		row = append(row, toValue(values, int(j)).Level(rep, 1, col.index))
	}
	return row
}

// Read reads a Parquet file into a table.
// Recognized options: include_names, selection.
func (c *Codec) Read(ctx context.Context, kind table.Kind, source any, opts registry.Options) (*table.Table, error) {
	g, err := readopts.Consume(opts)
	if err != nil {
		return nil, err
	}
	if err := readopts.RejectRest("read parquet", opts); err != nil {
		return nil, err
	}

	path, err := registry.SourcePath(source)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}

	rec, err := c.readFile(ctx, pf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rec.Release()

	out, err := g.Apply(ctx, rec)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	c.logger.Debug("read", "source", path, "rows", out.NumRows())
	return table.New(kind, out), nil
}

func (c *Codec) readFile(ctx context.Context, pf *parquet.File) (arrow.Record, error) {
	schema := pf.Schema()

	var names []string
	if order, ok := pf.Lookup(columnOrderKey); ok && order != "" {
		names = strings.Split(order, "\x1f")
	} else {
		for _, field := range schema.Fields() {
			names = append(names, field.Name())
		}
	}

	fields := make([]arrow.Field, len(names))
	byIndex := make(map[int]int, len(names))
	for i, name := range names {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		dt, err := arrowType(leaf.Node)
		if err != nil {
			return nil, &tableerr.UnsupportedColumnError{Column: name, Type: leaf.Node.Type().String()}
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
		byIndex[leaf.ColumnIndex] = i
	}

	b := array.NewRecordBuilder(c.mem, arrow.NewSchema(fields, nil))
	defer b.Release()

	reader := parquet.NewReader(pf)
	defer func() { _ = reader.Close() }()

	rows := make([]parquet.Row, readBatch)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i] = rows[i][:0]
		}
		n, err := reader.ReadRows(rows)
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return nil, fmt.Errorf("read parquet: %w", err)
		}
		for _, row := range rows[:n] {
			row.Range(func(columnIndex int, values []parquet.Value) bool {
				i, ok := byIndex[columnIndex]
				if !ok {
					return true
				}
				appendColumn(b.Field(i), values)
				return true
			})
		}
		if eof || n == 0 {
			break
		}
	}
	return b.NewRecord(), nil
}

func appendColumn(b array.Builder, values []parquet.Value) {
	lb, ok := b.(*array.ListBuilder)
	if !ok {
		if len(values) == 0 {
			b.AppendNull()
			return
		}
		appendValue(b, values[0])
		return
	}
	lb.Append(true)
	for _, v := range values {
		if v.DefinitionLevel() == 0 {
			continue
		}
		appendValue(lb.ValueBuilder(), v)
	}
}
