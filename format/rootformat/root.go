// Package rootformat reads and writes tables as ROOT trees and registers
// itself as the "root" format.
package rootformat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/VanDung-dev/tableio/metrics"
	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/rootarray"
	"github.com/VanDung-dev/tableio/selection"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

// Name is the registry format name.
const Name = "root"

// Extension is the file extension the identifier recognizes.
const Extension = ".root"

// Adapter holds the reader and writer bound into a registry.
type Adapter struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	writeDefault rootarray.WriteOptions

	deprecation sync.Once
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics counts deprecated option use in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithWriteDefaults sets the write options used for keys the caller does
// not pass.
func WithWriteDefaults(o rootarray.WriteOptions) Option {
	return func(a *Adapter) { a.writeDefault = o }
}

// New creates an adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		logger:       slog.Default(),
		writeDefault: rootarray.DefaultWriteOptions(),
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.With("component", "rootformat")
	return a
}

// Register binds the "root" reader, writer and extension identifier for
// every table kind. Logger and metrics default to the registry's.
func Register(reg *registry.Registry, opts ...Option) error {
	opts = append([]Option{WithLogger(reg.Logger()), WithMetrics(reg.Metrics())}, opts...)
	a := New(opts...)
	return reg.RegisterFormat(Name, table.Kinds(), a.Read, a.Write, registry.IdentifyExtension(Extension))
}

// Read reads a table from a ROOT tree.
//
// Recognized options: treename, include_names, the deprecated columns
// alias of include_names, and selection (a string or a list of strings
// joined with "&&"). Everything else is passed to rootarray.
func (a *Adapter) Read(ctx context.Context, kind table.Kind, source any, opts registry.Options) (*table.Table, error) {
	opts = opts.Clone()

	treeName, err := opts.String("treename")
	if err != nil {
		return nil, err
	}
	opts.Pop("treename")

	include, err := opts.Strings("include_names")
	if err != nil {
		return nil, err
	}
	opts.Pop("include_names")
	if include == nil {
		if legacy, ok := opts.Pop("columns"); ok {
			include, err = registry.AsStrings("columns", legacy)
			if err != nil {
				return nil, err
			}
			a.warnColumnsDeprecated()
		}
	}
	if include != nil {
		opts["branches"] = include
	}

	if v, ok := opts["selection"]; ok {
		expr, err := selection.Normalize(v)
		if err != nil {
			return nil, &tableerr.InvalidOptionError{Key: "selection", Err: err}
		}
		opts["selection"] = expr
	}

	path, err := registry.SourcePath(source)
	if err != nil {
		return nil, err
	}

	if treeName == "" {
		treeName, err = resolveTree(path)
		if err != nil {
			return nil, err
		}
	}

	ro, err := rootarray.ReadOptionsFrom(opts)
	if err != nil {
		return nil, err
	}
	ro.Logger = a.logger

	a.logger.Debug("reading tree", "source", path, "tree", treeName, "branches", include, "selection", ro.Selection)
	rec, err := rootarray.ReadTree(ctx, path, treeName, ro)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return table.New(kind, rec), nil
}

// Write writes a table as a ROOT tree. All options are passed to
// rootarray on top of the adapter's write defaults.
func (a *Adapter) Write(ctx context.Context, t *table.Table, dest string, opts registry.Options) error {
	wo, err := rootarray.WriteOptionsFrom(a.writeDefault, opts)
	if err != nil {
		return err
	}
	a.logger.Debug("writing tree", "dest", dest, "tree", wo.TreeName, "rows", t.NumRows())
	return rootarray.WriteRecord(ctx, t.Record(), dest, wo)
}

func (a *Adapter) warnColumnsDeprecated() {
	if a.metrics != nil {
		a.metrics.RecordDeprecatedOption("columns")
	}
	a.deprecation.Do(func() {
		a.logger.Warn("option `columns` has been renamed to `include_names` to match the generic table read options, please update your call",
			"deprecated", "columns", "replacement", "include_names")
	})
}

// resolveTree returns the only tree in path.
func resolveTree(path string) (string, error) {
	trees, err := rootarray.ListTrees(path)
	if err != nil {
		return "", fmt.Errorf("failed to list trees: %w", err)
	}
	switch len(trees) {
	case 1:
		return trees[0], nil
	case 0:
		return "", &tableerr.DataNotFoundError{Source: path, What: "trees"}
	default:
		return "", &tableerr.AmbiguousTreeError{Source: path, Trees: trees}
	}
}
