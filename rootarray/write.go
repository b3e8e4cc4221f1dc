package rootarray

import (
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/VanDung-dev/tableio/tableerr"
)

// WriteRecord writes rec as a tree into the ROOT file at path.
func WriteRecord(ctx context.Context, rec arrow.Record, path string, opts WriteOptions) error {
	if opts.TreeName == "" {
		opts.TreeName = DefaultTreeName
	}
	if opts.Mode == "" {
		opts.Mode = ModeRecreate
	}
	if err := opts.validate(); err != nil {
		return err
	}

	if strings.EqualFold(opts.Mode, ModeUpdate) {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, tableerr.ErrUpdateUnsupported)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	wvars, setters, err := writeVars(rec)
	if err != nil {
		return err
	}

	wopts, err := writerOptions(opts)
	if err != nil {
		return err
	}

	f, err := groot.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = f.Close()
		}
	}()

	w, err := rtree.NewWriter(f, opts.TreeName, wvars, wopts...)
	if err != nil {
		return fmt.Errorf("failed to create tree %q: %w", opts.TreeName, err)
	}

	nrows := int(rec.NumRows())
	for row := 0; row < nrows; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				_ = w.Close()
				return err
			}
		}
		for _, set := range setters {
			set(row)
		}
		if _, err := w.Write(); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to write entry %d: %w", row, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close tree %q: %w", opts.TreeName, err)
	}
	closed = true
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// writeVars binds every column of rec to a ROOT write variable. A list
// column becomes a variable-length leaf counted by a preceding int32
// column holding its lengths, or by a generated "n<name>" leaf.
func writeVars(rec arrow.Record) ([]rtree.WriteVar, []func(int), error) {
	schema := rec.Schema()
	taken := make(map[string]bool, schema.NumFields())
	for _, field := range schema.Fields() {
		taken[field.Name] = true
	}

	var (
		wvars   []rtree.WriteVar
		setters []func(int)
	)
	for i, field := range schema.Fields() {
		unsupported := &tableerr.UnsupportedColumnError{Column: field.Name, Type: field.Type.String()}

		list, ok := rec.Column(i).(*array.List)
		if !ok {
			value, set, ok := writeBinding(rec.Column(i))
			if !ok {
				return nil, nil, unsupported
			}
			wvars = append(wvars, rtree.WriteVar{Name: field.Name, Value: value})
			setters = append(setters, set)
			continue
		}

		n := new(int32)
		value, set, ok := writeListBinding(list, n)
		if !ok {
			return nil, nil, unsupported
		}
		count := countColumn(rec, i)
		if count == "" {
			count = uniqueName("n"+field.Name, taken)
			wvars = append(wvars, rtree.WriteVar{Name: count, Value: n})
		}
		wvars = append(wvars, rtree.WriteVar{Name: field.Name, Value: value, Count: count})
		setters = append(setters, set)
	}
	return wvars, setters, nil
}

func writerOptions(opts WriteOptions) ([]rtree.WriteOption, error) {
	var wopts []rtree.WriteOption
	if opts.Title != "" {
		wopts = append(wopts, rtree.WithTitle(opts.Title))
	}
	if opts.BasketSize > 0 {
		wopts = append(wopts, rtree.WithBasketSize(opts.BasketSize))
	}

	level := opts.CompressionLevel
	switch strings.ToLower(opts.Compression) {
	case "":
	case "none":
		wopts = append(wopts, rtree.WithoutCompression())
	case "zlib":
		if level == 0 {
			level = flate.DefaultCompression
		}
		wopts = append(wopts, rtree.WithZlib(level))
	case "lz4":
		wopts = append(wopts, rtree.WithLZ4(defaultLevel(level)))
	case "lzma":
		wopts = append(wopts, rtree.WithLZMA(defaultLevel(level)))
	case "zstd":
		wopts = append(wopts, rtree.WithZstd(defaultLevel(level)))
	default:
		return nil, &tableerr.InvalidOptionError{Key: "compression", Err: fmt.Errorf("unknown algorithm %q", opts.Compression)}
	}
	return wopts, nil
}

func defaultLevel(level int) int {
	if level <= 0 {
		return 1
	}
	return level
}
