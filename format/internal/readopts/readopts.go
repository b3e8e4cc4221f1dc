// Package readopts handles the read options shared by the columnar file
// formats: include_names and selection.
package readopts

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/selection"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

// Generic is the parsed form of the shared read options.
type Generic struct {
	IncludeNames []string
	Selection    string
}

// Consume pops include_names and selection from opts.
func Consume(opts registry.Options) (Generic, error) {
	var g Generic
	var err error
	if g.IncludeNames, err = opts.Strings("include_names"); err != nil {
		return g, err
	}
	opts.Pop("include_names")

	if v, ok := opts.Pop("selection"); ok {
		if g.Selection, err = selection.Normalize(v); err != nil {
			return g, &tableerr.InvalidOptionError{Key: "selection", Err: err}
		}
	}
	return g, nil
}

// Apply filters rec by the selection and then projects it to IncludeNames.
// The caller owns the returned record.
func (g Generic) Apply(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
	filtered, err := selection.Apply(ctx, rec, g.Selection)
	if err != nil {
		return nil, err
	}
	if g.IncludeNames == nil {
		return filtered, nil
	}
	defer filtered.Release()
	return table.Project(filtered, g.IncludeNames)
}

// RejectRest fails with the first option left in opts.
func RejectRest(op string, opts registry.Options) error {
	if keys := opts.Keys(); len(keys) > 0 {
		return &tableerr.UnknownOptionError{Op: op, Key: keys[0]}
	}
	return nil
}
