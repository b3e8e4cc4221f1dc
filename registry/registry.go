// Package registry maps (format, table kind) pairs to reader, writer and
// identifier functions and dispatches generic read and write calls to them.
//
// A Registry is an explicit value owned by the caller. Formats register
// themselves through an explicit call made once during process setup:
//
//	reg := registry.New(registry.WithLogger(logger))
//	if err := format.RegisterAll(reg); err != nil { ... }
//	t, err := reg.Read(ctx, table.KindEvent, "events.root", "", nil)
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/VanDung-dev/tableio/metrics"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

// Origin tells an identifier whether the registry is resolving a read or
// a write.
type Origin int

const (
	OriginRead Origin = iota
	OriginWrite
)

func (o Origin) String() string {
	if o == OriginWrite {
		return "write"
	}
	return "read"
}

// ReaderFunc reads a table of the requested kind from source. Source is a
// path string or a value with a Name() string method such as *os.File.
type ReaderFunc func(ctx context.Context, kind table.Kind, source any, opts Options) (*table.Table, error)

// WriterFunc writes t to the destination path.
type WriterFunc func(ctx context.Context, t *table.Table, dest string, opts Options) error

// IdentifierFunc reports whether path is in its format.
type IdentifierFunc func(origin Origin, path string, opts Options) bool

type key struct {
	format string
	kind   table.Kind
}

// Registry holds the registered formats. It is safe for concurrent use.
type Registry struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	readers     map[key]ReaderFunc
	writers     map[key]WriterFunc
	identifiers map[key]IdentifierFunc
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records every dispatched read and write in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:      slog.Default(),
		readers:     make(map[key]ReaderFunc),
		writers:     make(map[key]WriterFunc),
		identifiers: make(map[key]IdentifierFunc),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.With("component", "registry")
	return r
}

// Logger returns the registry's logger so formats can derive their own.
func (r *Registry) Logger() *slog.Logger { return r.logger }

// Metrics returns the metrics the registry records into, or nil.
func (r *Registry) Metrics() *metrics.Metrics { return r.metrics }

// RegisterOption configures a single registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	overwrite bool
}

// Overwrite replaces an existing registration instead of failing.
func Overwrite() RegisterOption {
	return func(c *registerConfig) { c.overwrite = true }
}

func registerInto[F any](r *Registry, m map[key]F, role, format string, kind table.Kind, fn F, opts []RegisterOption) error {
	var cfg registerConfig
	for _, o := range opts {
		o(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{format: format, kind: kind}
	if _, exists := m[k]; exists && !cfg.overwrite {
		return &tableerr.RegistrationConflictError{Role: role, Format: format, Kind: string(kind)}
	}
	m[k] = fn
	r.logger.Debug("registered", "role", role, "format", format, "kind", kind)
	return nil
}

// RegisterReader binds fn as the reader of format for kind. A second
// registration for the same pair fails unless Overwrite is given.
func (r *Registry) RegisterReader(format string, kind table.Kind, fn ReaderFunc, opts ...RegisterOption) error {
	return registerInto(r, r.readers, "reader", format, kind, fn, opts)
}

// RegisterWriter binds fn as the writer of format for kind.
func (r *Registry) RegisterWriter(format string, kind table.Kind, fn WriterFunc, opts ...RegisterOption) error {
	return registerInto(r, r.writers, "writer", format, kind, fn, opts)
}

// RegisterIdentifier binds fn as the identifier of format for kind.
func (r *Registry) RegisterIdentifier(format string, kind table.Kind, fn IdentifierFunc, opts ...RegisterOption) error {
	return registerInto(r, r.identifiers, "identifier", format, kind, fn, opts)
}

// UnregisterReader removes the reader of format for kind.
func (r *Registry) UnregisterReader(format string, kind table.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.readers, key{format, kind})
}

// UnregisterWriter removes the writer of format for kind.
func (r *Registry) UnregisterWriter(format string, kind table.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.writers, key{format, kind})
}

// UnregisterIdentifier removes the identifier of format for kind.
func (r *Registry) UnregisterIdentifier(format string, kind table.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.identifiers, key{format, kind})
}

// GetReader returns the reader of format for kind.
func (r *Registry) GetReader(format string, kind table.Kind) (ReaderFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.readers[key{format, kind}]
	return fn, ok
}

// GetWriter returns the writer of format for kind.
func (r *Registry) GetWriter(format string, kind table.Kind) (WriterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.writers[key{format, kind}]
	return fn, ok
}

// Identify returns the sorted formats whose identifier for kind accepts
// path.
func (r *Registry) Identify(origin Origin, kind table.Kind, path string, opts Options) []string {
	r.mu.RLock()
	var candidates []string
	for k, fn := range r.identifiers {
		if k.kind != kind {
			continue
		}
		if fn(origin, path, opts) {
			candidates = append(candidates, k.format)
		}
	}
	r.mu.RUnlock()

	sort.Strings(candidates)
	return candidates
}

func (r *Registry) resolveFormat(origin Origin, kind table.Kind, path, format string, opts Options) (string, error) {
	if format != "" {
		return format, nil
	}
	candidates := r.Identify(origin, kind, path, opts)
	if len(candidates) != 1 {
		return "", &tableerr.FormatNotIdentifiedError{Op: origin.String(), Path: path, Candidates: candidates}
	}
	return candidates[0], nil
}

// Read reads a table of the given kind from source using format, or the
// format identified from the source path when format is empty.
func (r *Registry) Read(ctx context.Context, kind table.Kind, source any, format string, opts Options) (*table.Table, error) {
	path, err := SourcePath(source)
	if err != nil {
		return nil, err
	}
	format, err = r.resolveFormat(OriginRead, kind, path, format, opts)
	if err != nil {
		return nil, err
	}

	fn, ok := r.GetReader(format, kind)
	if !ok {
		return nil, &tableerr.FormatNotFoundError{Op: "reader", Format: format, Kind: string(kind)}
	}

	r.logger.Debug("read", "format", format, "kind", kind, "source", path)
	start := time.Now()
	t, err := fn(ctx, kind, source, opts.Clone())
	if r.metrics != nil {
		var rows int64
		var cols int
		if t != nil {
			rows, cols = t.NumRows(), t.NumCols()
		}
		r.metrics.RecordOperation("read", format, string(kind), err, rows, cols, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s as %s: %w", path, format, err)
	}
	return t, nil
}

// Write writes t to dest using format, or the format identified from the
// destination path when format is empty. The table's kind selects the
// writer.
func (r *Registry) Write(ctx context.Context, t *table.Table, dest, format string, opts Options) error {
	kind := t.Kind()
	format, err := r.resolveFormat(OriginWrite, kind, dest, format, opts)
	if err != nil {
		return err
	}

	fn, ok := r.GetWriter(format, kind)
	if !ok {
		return &tableerr.FormatNotFoundError{Op: "writer", Format: format, Kind: string(kind)}
	}

	r.logger.Debug("write", "format", format, "kind", kind, "dest", dest)
	start := time.Now()
	err = fn(ctx, t, dest, opts.Clone())
	if r.metrics != nil {
		r.metrics.RecordOperation("write", format, string(kind), err, t.NumRows(), t.NumCols(), time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("write %s as %s: %w", dest, format, err)
	}
	return nil
}

// FormatInfo describes what is registered for one (format, kind) pair.
type FormatInfo struct {
	Format      string
	Kind        table.Kind
	CanRead     bool
	CanWrite    bool
	CanIdentify bool
}

// Formats returns every registered (format, kind) pair sorted by format
// then kind.
func (r *Registry) Formats() []FormatInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[key]*FormatInfo)
	get := func(k key) *FormatInfo {
		fi, ok := seen[k]
		if !ok {
			fi = &FormatInfo{Format: k.format, Kind: k.kind}
			seen[k] = fi
		}
		return fi
	}
	for k := range r.readers {
		get(k).CanRead = true
	}
	for k := range r.writers {
		get(k).CanWrite = true
	}
	for k := range r.identifiers {
		get(k).CanIdentify = true
	}

	result := make([]FormatInfo, 0, len(seen))
	for _, fi := range seen {
		result = append(result, *fi)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Format != result[j].Format {
			return result[i].Format < result[j].Format
		}
		return result[i].Kind < result[j].Kind
	})
	return result
}

// RegisterFormat binds read, write and identify as format for every kind.
// Nil functions are skipped. Either every binding is made or, on a
// conflict, none is.
func (r *Registry) RegisterFormat(format string, kinds []table.Kind, read ReaderFunc, write WriterFunc, identify IdentifierFunc, opts ...RegisterOption) error {
	var cfg registerConfig
	for _, o := range opts {
		o(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !cfg.overwrite {
		for _, kind := range kinds {
			k := key{format: format, kind: kind}
			conflict := func(role string) error {
				return &tableerr.RegistrationConflictError{Role: role, Format: format, Kind: string(kind)}
			}
			if _, exists := r.readers[k]; exists && read != nil {
				return conflict("reader")
			}
			if _, exists := r.writers[k]; exists && write != nil {
				return conflict("writer")
			}
			if _, exists := r.identifiers[k]; exists && identify != nil {
				return conflict("identifier")
			}
		}
	}

	for _, kind := range kinds {
		k := key{format: format, kind: kind}
		if read != nil {
			r.readers[k] = read
		}
		if write != nil {
			r.writers[k] = write
		}
		if identify != nil {
			r.identifiers[k] = identify
		}
		r.logger.Debug("registered", "format", format, "kind", kind)
	}
	return nil
}
