// Package ipcformat reads and writes tables as Arrow IPC files.
package ipcformat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/tableio/format/internal/readopts"
	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

// Name is the registry format name.
const Name = "arrow"

// Extensions recognized by the identifier.
var Extensions = []string{".arrow", ".feather", ".arrows"}

// Codec holds the Arrow IPC reader and writer.
type Codec struct {
	allocator memory.Allocator
	logger    *slog.Logger
}

// New creates a codec logging to logger.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{
		allocator: memory.DefaultAllocator,
		logger:    logger.With("component", "ipcformat"),
	}
}

// Register binds the "arrow" format for every table kind.
func Register(reg *registry.Registry) error {
	c := New(reg.Logger())
	return reg.RegisterFormat(Name, table.Kinds(), c.Read, c.Write, registry.IdentifyExtension(Extensions...))
}

// Read reads every record batch of an IPC file or stream into one table.
// Recognized options: include_names, selection.
func (c *Codec) Read(ctx context.Context, kind table.Kind, source any, opts registry.Options) (*table.Table, error) {
	g, err := readopts.Consume(opts)
	if err != nil {
		return nil, err
	}
	if err := readopts.RejectRest("read arrow", opts); err != nil {
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

	schema, records, err := c.readAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec arrow.Record
	if len(records) == 0 {
		rec = table.Empty(schema, c.allocator)
	} else if rec, err = table.Concat(records, c.allocator); err != nil {
		return nil, err
	}
	defer rec.Release()

	out, err := g.Apply(ctx, rec)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	c.logger.Debug("read", "source", path, "batches", len(records), "rows", out.NumRows())
	return table.New(kind, out), nil
}

// readAll reads the random-access file format, falling back to the
// streaming format.
func (c *Codec) readAll(f *os.File) (*arrow.Schema, []arrow.Record, error) {
	fr, err := ipc.NewFileReader(f, ipc.WithAllocator(c.allocator))
	if err == nil {
		defer fr.Close()
		records := make([]arrow.Record, 0, fr.NumRecords())
		for i := 0; i < fr.NumRecords(); i++ {
			rec, err := fr.RecordAt(i)
			if err != nil {
				for _, r := range records {
					r.Release()
				}
				return nil, nil, fmt.Errorf("failed to read record %d: %w", i, err)
			}
			records = append(records, rec)
		}
		return fr.Schema(), records, nil
	}

	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, nil, serr
	}
	reader, serr := ipc.NewReader(f, ipc.WithAllocator(c.allocator))
	if serr != nil {
		return nil, nil, fmt.Errorf("not an Arrow IPC file (%v) or stream: %w", err, serr)
	}
	defer reader.Release()

	var records []arrow.Record
	for reader.Next() {
		record := reader.Record()
		record.Retain()
		records = append(records, record)
	}
	if reader.Err() != nil {
		for _, r := range records {
			r.Release()
		}
		return nil, nil, reader.Err()
	}
	return reader.Schema(), records, nil
}

// Write writes the table as a single record batch.
// Recognized options: compression (none, lz4 or zstd) and stream, which
// selects the streaming format instead of the file format.
func (c *Codec) Write(ctx context.Context, t *table.Table, dest string, opts registry.Options) error {
	compression, err := opts.String("compression")
	if err != nil {
		return err
	}
	opts.Pop("compression")
	stream, err := opts.Bool("stream", strings.HasSuffix(dest, ".arrows"))
	if err != nil {
		return err
	}
	opts.Pop("stream")
	if err := readopts.RejectRest("write arrow", opts); err != nil {
		return err
	}

	ipcOpts := []ipc.Option{ipc.WithSchema(t.Schema()), ipc.WithAllocator(c.allocator)}
	switch strings.ToLower(compression) {
	case "", "none":
	case "lz4":
		ipcOpts = append(ipcOpts, ipc.WithLZ4())
	case "zstd":
		ipcOpts = append(ipcOpts, ipc.WithZstd())
	default:
		return &tableerr.InvalidOptionError{Key: "compression", Err: fmt.Errorf("unknown codec %q", compression)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	var w interface {
		Write(arrow.Record) error
		Close() error
	}
	if stream {
		w = ipc.NewWriter(f, ipcOpts...)
	} else if w, err = ipc.NewFileWriter(f, ipcOpts...); err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	if err := w.Write(t.Record()); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	c.logger.Debug("wrote", "dest", dest, "rows", t.NumRows(), "stream", stream)
	return f.Close()
}
