package rootarray

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/selection"
	"github.com/VanDung-dev/tableio/tableerr"
)

// DefaultTreeName is the tree written when no name is given.
const DefaultTreeName = "tree"

// Write modes.
const (
	ModeRecreate = "recreate"
	ModeUpdate   = "update"
)

// ReadOptions controls ReadTree.
type ReadOptions struct {
	// Branches to read, in output column order. Nil reads every branch
	// with a supported type.
	Branches []string
	// Selection is a boolean row filter over branch values.
	Selection string
	// Start, Stop and Step select entries [Start, Stop) every Step
	// entries before the selection is applied. Stop < 0 reads to the end.
	Start, Stop, Step int64

	Logger *slog.Logger
}

// DefaultReadOptions reads every entry of every supported branch.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{Stop: -1, Step: 1}
}

// ReadOptionsFrom decodes read options. Recognized keys are branches,
// selection, start, stop and step; any other key is an error.
func ReadOptionsFrom(opts registry.Options) (ReadOptions, error) {
	ro := DefaultReadOptions()
	var err error

	for _, k := range opts.Keys() {
		v := opts[k]
		switch k {
		case "branches":
			ro.Branches, err = registry.AsStrings(k, v)
		case "selection":
			ro.Selection, err = selection.Normalize(v)
			if err != nil {
				err = &tableerr.InvalidOptionError{Key: k, Err: err}
			}
		case "start":
			ro.Start, err = registry.AsInt(k, v)
		case "stop":
			ro.Stop, err = registry.AsInt(k, v)
		case "step":
			ro.Step, err = registry.AsInt(k, v)
		default:
			return ro, &tableerr.UnknownOptionError{Op: "root2array", Key: k}
		}
		if err != nil {
			return ro, err
		}
	}
	return ro, ro.validate()
}

func (o ReadOptions) validate() error {
	if o.Start < 0 {
		return &tableerr.InvalidOptionError{Key: "start", Err: fmt.Errorf("must be >= 0, got %d", o.Start)}
	}
	if o.Step < 1 {
		return &tableerr.InvalidOptionError{Key: "step", Err: fmt.Errorf("must be >= 1, got %d", o.Step)}
	}
	return nil
}

// WriteOptions controls WriteRecord.
type WriteOptions struct {
	TreeName string
	Title    string
	Mode     string
	// Compression is one of lz4, zlib, lzma, zstd or none. Empty keeps
	// the library default.
	Compression      string
	CompressionLevel int
	BasketSize       int
}

// DefaultWriteOptions writes a tree named "tree" into a new file.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{TreeName: DefaultTreeName, Mode: ModeRecreate}
}

// WriteOptionsFrom decodes write options on top of base. Recognized keys
// are treename, title, mode, compression, compression_level and
// basket_size; any other key is an error.
func WriteOptionsFrom(base WriteOptions, opts registry.Options) (WriteOptions, error) {
	wo := base
	var err error
	var n int64

	for _, k := range opts.Keys() {
		v := opts[k]
		switch k {
		case "treename":
			wo.TreeName, err = registry.AsString(k, v)
		case "title":
			wo.Title, err = registry.AsString(k, v)
		case "mode":
			wo.Mode, err = registry.AsString(k, v)
		case "compression":
			wo.Compression, err = registry.AsString(k, v)
		case "compression_level":
			n, err = registry.AsInt(k, v)
			wo.CompressionLevel = int(n)
		case "basket_size":
			n, err = registry.AsInt(k, v)
			wo.BasketSize = int(n)
		default:
			return wo, &tableerr.UnknownOptionError{Op: "array2root", Key: k}
		}
		if err != nil {
			return wo, err
		}
	}
	return wo, wo.validate()
}

func (o WriteOptions) validate() error {
	switch strings.ToLower(o.Mode) {
	case ModeRecreate, ModeUpdate:
	default:
		return &tableerr.InvalidOptionError{Key: "mode", Err: fmt.Errorf("expected %s or %s, got %q", ModeRecreate, ModeUpdate, o.Mode)}
	}
	switch strings.ToLower(o.Compression) {
	case "", "none", "lz4", "zlib", "lzma", "zstd":
	default:
		return &tableerr.InvalidOptionError{Key: "compression", Err: fmt.Errorf("unknown algorithm %q", o.Compression)}
	}
	if o.BasketSize < 0 {
		return &tableerr.InvalidOptionError{Key: "basket_size", Err: fmt.Errorf("must be >= 0, got %d", o.BasketSize)}
	}
	return nil
}
