package rootarray

import (
	"fmt"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// arrowType maps the Go type groot decodes a leaf into onto an Arrow type.
// Scalars map to primitives, slices and fixed arrays of scalars to lists.
func arrowType(t reflect.Type) (arrow.DataType, error) {
	switch t.Kind() {
	case reflect.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case reflect.Int8:
		return arrow.PrimitiveTypes.Int8, nil
	case reflect.Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case reflect.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case reflect.Int64, reflect.Int:
		return arrow.PrimitiveTypes.Int64, nil
	case reflect.Uint8:
		return arrow.PrimitiveTypes.Uint8, nil
	case reflect.Uint16:
		return arrow.PrimitiveTypes.Uint16, nil
	case reflect.Uint32:
		return arrow.PrimitiveTypes.Uint32, nil
	case reflect.Uint64, reflect.Uint:
		return arrow.PrimitiveTypes.Uint64, nil
	case reflect.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case reflect.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case reflect.String:
		return arrow.BinaryTypes.String, nil
	case reflect.Slice, reflect.Array:
		if k := t.Elem().Kind(); k == reflect.Slice || k == reflect.Array {
			return nil, fmt.Errorf("nested array type %s", t)
		}
		elem, err := arrowType(t.Elem())
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

// appendValue appends v to b. The builder must have been created for
// arrowType(v.Type()).
func appendValue(b array.Builder, v reflect.Value) error {
	switch b := b.(type) {
	case *array.BooleanBuilder:
		b.Append(v.Bool())
	case *array.Int8Builder:
		b.Append(int8(v.Int()))
	case *array.Int16Builder:
		b.Append(int16(v.Int()))
	case *array.Int32Builder:
		b.Append(int32(v.Int()))
	case *array.Int64Builder:
		b.Append(v.Int())
	case *array.Uint8Builder:
		b.Append(uint8(v.Uint()))
	case *array.Uint16Builder:
		b.Append(uint16(v.Uint()))
	case *array.Uint32Builder:
		b.Append(uint32(v.Uint()))
	case *array.Uint64Builder:
		b.Append(v.Uint())
	case *array.Float32Builder:
		b.Append(float32(v.Float()))
	case *array.Float64Builder:
		b.Append(v.Float())
	case *array.StringBuilder:
		b.Append(v.String())
	case *array.ListBuilder:
		b.Append(true)
		vb := b.ValueBuilder()
		for i := 0; i < v.Len(); i++ {
			if err := appendValue(vb, v.Index(i)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("no appender for builder %T", b)
	}
	return nil
}

// bind allocates the value a ROOT writer reads from and returns a setter
// copying row i of the column into it. Nulls are written as zero values.
func bind[T any](col arrow.Array, get func(int) T) (any, func(int)) {
	p := new(T)
	return p, func(i int) {
		if col.IsNull(i) {
			var zero T
			*p = zero
			return
		}
		*p = get(i)
	}
}

// writeBinding returns the write variable value and setter for a column,
// or false when the column type has no ROOT leaf equivalent.
func writeBinding(col arrow.Array) (any, func(int), bool) {
	switch c := col.(type) {
	case *array.Boolean:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Int8:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Int16:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Int32:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Int64:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Uint8:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Uint16:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Uint32:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Uint64:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Float32:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.Float64:
		v, set := bind(c, c.Value)
		return v, set, true
	case *array.String:
		v, set := bind(c, c.Value)
		return v, set, true
	}
	return nil, nil, false
}

// listLen returns the number of elements in row i of col. Null rows are
// empty.
func listLen(col *array.List, i int) int64 {
	if col.IsNull(i) {
		return 0
	}
	start, end := col.ValueOffsets(i)
	return end - start
}

// bindList allocates the slice a ROOT writer reads a variable-length leaf
// from and returns a setter filling it with row i of col and storing its
// length in count. Null elements are written as zero values.
func bindList[T any](col *array.List, vals arrow.Array, get func(int) T, count *int32) (any, func(int)) {
	p := new([]T)
	return p, func(i int) {
		*p = (*p)[:0]
		if col.IsValid(i) {
			start, end := col.ValueOffsets(i)
			for j := int(start); j < int(end); j++ {
				if vals.IsNull(j) {
					var zero T
					*p = append(*p, zero)
					continue
				}
				*p = append(*p, get(j))
			}
		}
		*count = int32(len(*p))
	}
}

// writeListBinding is writeBinding for list columns. Only lists of
// booleans and numbers have a ROOT leaf equivalent.
func writeListBinding(col *array.List, count *int32) (any, func(int), bool) {
	switch v := col.ListValues().(type) {
	case *array.Boolean:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Int8:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Int16:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Int32:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Int64:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Uint8:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Uint16:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Uint32:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Uint64:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Float32:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	case *array.Float64:
		p, set := bindList(col, v, v.Value, count)
		return p, set, true
	}
	return nil, nil, false
}

// countColumn returns the name of a non-null int32 column before column i
// of rec holding the lengths of list column i, or "" when there is none.
func countColumn(rec arrow.Record, i int) string {
	list := rec.Column(i).(*array.List)
	for j := 0; j < i; j++ {
		c, ok := rec.Column(j).(*array.Int32)
		if !ok || c.NullN() > 0 {
			continue
		}
		match := true
		for row := 0; row < list.Len(); row++ {
			if int64(c.Value(row)) != listLen(list, row) {
				match = false
				break
			}
		}
		if match {
			return rec.ColumnName(j)
		}
	}
	return ""
}

// uniqueName returns name, or name followed by underscores, such that it is
// not in taken, and marks it taken.
func uniqueName(name string, taken map[string]bool) string {
	for taken[name] {
		name += "_"
	}
	taken[name] = true
	return name
}
