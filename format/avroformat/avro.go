// Package avroformat reads and writes tables as Avro object container
// files.
package avroformat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	"github.com/VanDung-dev/tableio/format/internal/readopts"
	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

// Name is the registry format name.
const Name = "avro"

// Extension is the file extension the identifier recognizes.
const Extension = ".avro"

// Codec holds the Avro reader and writer.
type Codec struct {
	mem    memory.Allocator
	logger *slog.Logger
}

// New creates a codec logging to logger.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{mem: memory.DefaultAllocator, logger: logger.With("component", "avroformat")}
}

// Register binds the "avro" format for every table kind.
func Register(reg *registry.Registry) error {
	c := New(reg.Logger())
	return reg.RegisterFormat(Name, table.Kinds(), c.Read, c.Write, registry.IdentifyExtension(Extension))
}

// Write writes the table as an Avro container file.
// Recognized options: codec (deflate, snappy, zstandard or null).
func (c *Codec) Write(ctx context.Context, t *table.Table, dest string, opts registry.Options) error {
	name, err := opts.String("codec")
	if err != nil {
		return err
	}
	opts.Pop("codec")
	if err := readopts.RejectRest("write avro", opts); err != nil {
		return err
	}

	var codec ocf.CodecName
	switch strings.ToLower(name) {
	case "", "deflate":
		codec = ocf.Deflate
	case "snappy":
		codec = ocf.Snappy
	case "zstandard", "zstd":
		codec = ocf.ZStandard
	case "null", "none":
		codec = ocf.Null
	default:
		return &tableerr.InvalidOptionError{Key: "codec", Err: fmt.Errorf("unknown codec %q", name)}
	}

	rec := t.Record()
	schema, err := schemaJSON(rec.Schema())
	if err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	enc, err := ocf.NewEncoder(schema, f,
		ocf.WithMetadata(map[string][]byte{"tableio.kind": []byte(t.Kind())}),
		ocf.WithCodec(codec),
	)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}

	names := make([]string, rec.NumCols())
	for i, fld := range rec.Schema().Fields() {
		names[i] = fld.Name
	}
	for row := 0; row < int(rec.NumRows()); row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				_ = enc.Close()
				return err
			}
		}
		m := make(map[string]any, len(names))
		for i, name := range names {
			m[name] = goValue(rec.Column(i), row)
		}
		if err := enc.Encode(m); err != nil {
			_ = enc.Close()
			return fmt.Errorf("encode row %d: %w", row, err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	c.logger.Debug("wrote", "dest", dest, "rows", rec.NumRows(), "codec", codec)
	return f.Close()
}

// goValue returns element i of arr as the Go value the Avro encoder
// expects for its schema type.
func goValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		if _, ok := arr.(*array.List); ok {
			return []any{}
		}
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int32(a.Value(i))
	case *array.Int16:
		return int32(a.Value(i))
	case *array.Int32:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int32(a.Value(i))
	case *array.Uint16:
		return int32(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.List:
		beg, end := a.ValueOffsets(i)
		values := a.ListValues()
		out := make([]any, 0, end-beg)
		for j := beg; j < end; j++ {
			out = append(out, goValue(values, int(j)))
		}
		return out
	}
	return nil
}

// Read reads an Avro container file into a table.
// Recognized options: include_names, selection.
func (c *Codec) Read(ctx context.Context, kind table.Kind, source any, opts registry.Options) (*table.Table, error) {
	g, err := readopts.Consume(opts)
	if err != nil {
		return nil, err
	}
	if err := readopts.RejectRest("read avro", opts); err != nil {
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
	defer f.Close()

	dec, err := ocf.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("create decoder for %s: %w", path, err)
	}
	rs, ok := dec.Schema().(*avro.RecordSchema)
	if !ok {
		return nil, fmt.Errorf("%s: top-level schema is %s, not a record", path, dec.Schema().Type())
	}

	fields := make([]arrow.Field, len(rs.Fields()))
	for i, fld := range rs.Fields() {
		if fields[i], err = arrowField(fld); err != nil {
			return nil, err
		}
	}
	b := array.NewRecordBuilder(c.mem, arrow.NewSchema(fields, nil))
	defer b.Release()

	for n := 0; dec.HasNext(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", n, err)
		}
		for i, fld := range fields {
			if err := appendAny(b.Field(i), m[fld.Name]); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", n, fld.Name, err)
			}
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rec := b.NewRecord()
	defer rec.Release()
	out, err := g.Apply(ctx, rec)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	c.logger.Debug("read", "source", path, "rows", out.NumRows())
	return table.New(kind, out), nil
}
