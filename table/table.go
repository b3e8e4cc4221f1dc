// Package table provides the in-memory table types read and written by the
// format registry. A Table is a kind tag plus an Arrow record.
package table

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/tableio/selection"
)

// Kind identifies the table type a reader constructs and a writer accepts.
type Kind string

const (
	// KindTable is a generic table of named columns.
	KindTable Kind = "Table"
	// KindEvent is a table of discrete events, typically with a time column.
	KindEvent Kind = "EventTable"
)

// Kinds returns every table kind in registration order.
func Kinds() []Kind {
	return []Kind{KindTable, KindEvent}
}

func (k Kind) String() string { return string(k) }

// ParseKind converts a name such as "table" or "event" into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "table", "Table":
		return KindTable, nil
	case "event", "events", "EventTable":
		return KindEvent, nil
	}
	return "", fmt.Errorf("unknown table kind %q (expected table or event)", s)
}

// Table is a set of rows of named columns.
type Table struct {
	kind Kind
	rec  arrow.Record
}

// New wraps rec in a table of the given kind. New retains rec; the caller
// keeps ownership of its own reference.
func New(kind Kind, rec arrow.Record) *Table {
	if kind == "" {
		kind = KindTable
	}
	rec.Retain()
	return &Table{kind: kind, rec: rec}
}

// FromColumns builds a table from parallel column names and arrays.
func FromColumns(kind Kind, names []string, cols []arrow.Array) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("got %d names for %d columns", len(names), len(cols))
	}

	fields := make([]arrow.Field, len(cols))
	var nrows int64 = -1
	for i, col := range cols {
		if nrows >= 0 && int64(col.Len()) != nrows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", names[i], col.Len(), nrows)
		}
		nrows = int64(col.Len())
		fields[i] = arrow.Field{Name: names[i], Type: col.DataType(), Nullable: col.NullN() > 0}
	}
	if nrows < 0 {
		nrows = 0
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, nrows)
	defer rec.Release()
	return New(kind, rec), nil
}

// Kind returns the table kind.
func (t *Table) Kind() Kind { return t.kind }

// Record returns the table's columnar representation. The record is owned
// by the table; call Retain to keep it beyond the table's lifetime.
func (t *Table) Record() arrow.Record { return t.rec }

// Schema returns the Arrow schema of the table.
func (t *Table) Schema() *arrow.Schema { return t.rec.Schema() }

// NumRows returns the number of rows.
func (t *Table) NumRows() int64 { return t.rec.NumRows() }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return int(t.rec.NumCols()) }

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	fields := t.rec.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (arrow.Array, bool) {
	idx := t.rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, false
	}
	return t.rec.Column(idx[0]), true
}

// As returns a table of another kind sharing the same columns.
func (t *Table) As(kind Kind) *Table {
	return New(kind, t.rec)
}

// Select returns a table holding only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	rec, err := Project(t.rec, names)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return New(t.kind, rec), nil
}

// Filter returns the rows matching every selection expression.
func (t *Table) Filter(ctx context.Context, exprs ...string) (*Table, error) {
	rec, err := selection.Apply(ctx, t.rec, selection.Join(exprs))
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return New(t.kind, rec), nil
}

// Equal reports whether both tables hold the same columns and values.
// Kinds are not compared.
func (t *Table) Equal(other *Table) bool {
	if other == nil {
		return false
	}
	return array.RecordEqual(t.rec, other.rec)
}

// Release drops the table's reference to its record.
func (t *Table) Release() {
	if t.rec != nil {
		t.rec.Release()
		t.rec = nil
	}
}

// Project returns a new record with only the named columns of rec, in the
// given order.
func Project(rec arrow.Record, names []string) (arrow.Record, error) {
	schema := rec.Schema()
	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	for i, name := range names {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
		fields[i] = schema.Field(idx[0])
		cols[i] = rec.Column(idx[0])
	}
	md := schema.Metadata()
	return array.NewRecord(arrow.NewSchema(fields, &md), cols, rec.NumRows()), nil
}

// Concat joins records sharing a schema into one record. A single record
// is returned with an extra reference.
func Concat(recs []arrow.Record, mem memory.Allocator) (arrow.Record, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("no records to concatenate")
	}
	if len(recs) == 1 {
		recs[0].Retain()
		return recs[0], nil
	}

	schema := recs[0].Schema()
	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	var nrows int64
	for _, r := range recs {
		if !r.Schema().Equal(schema) {
			return nil, fmt.Errorf("schema mismatch: %s vs %s", schema, r.Schema())
		}
		nrows += r.NumRows()
	}

	for i := range cols {
		parts := make([]arrow.Array, len(recs))
		for j, r := range recs {
			parts[j] = r.Column(i)
		}
		col, err := array.Concatenate(parts, mem)
		if err != nil {
			return nil, fmt.Errorf("failed to concatenate column %q: %w", schema.Field(i).Name, err)
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, nrows), nil
}

// Empty returns a record with schema and no rows.
func Empty(schema *arrow.Schema, mem memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	return b.NewRecord()
}
