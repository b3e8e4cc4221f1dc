package parquetformat

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/parquet-go/parquet-go"
)

// leafNode returns the parquet node storing values of dt.
func leafNode(dt arrow.DataType) (parquet.Node, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return parquet.Leaf(parquet.BooleanType), nil
	case arrow.INT8:
		return parquet.Int(8), nil
	case arrow.INT16:
		return parquet.Int(16), nil
	case arrow.INT32:
		return parquet.Int(32), nil
	case arrow.INT64:
		return parquet.Int(64), nil
	case arrow.UINT8:
		return parquet.Uint(8), nil
	case arrow.UINT16:
		return parquet.Uint(16), nil
	case arrow.UINT32:
		return parquet.Uint(32), nil
	case arrow.UINT64:
		return parquet.Uint(64), nil
	case arrow.FLOAT32:
		return parquet.Leaf(parquet.FloatType), nil
	case arrow.FLOAT64:
		return parquet.Leaf(parquet.DoubleType), nil
	case arrow.STRING:
		return parquet.String(), nil
	}
	return nil, fmt.Errorf("unsupported type %s", dt)
}

// fieldNode returns the node of a top-level column: optional scalars and
// repeated leaves for lists.
func fieldNode(dt arrow.DataType) (parquet.Node, error) {
	if lt, ok := dt.(*arrow.ListType); ok {
		elem, err := leafNode(lt.Elem())
		if err != nil {
			return nil, err
		}
		return parquet.Repeated(elem), nil
	}
	leaf, err := leafNode(dt)
	if err != nil {
		return nil, err
	}
	return parquet.Optional(leaf), nil
}

// arrowType maps a parquet column back to the Arrow type it was written
// from.
func arrowType(n parquet.Node) (arrow.DataType, error) {
	elem, err := leafType(n.Type())
	if err != nil {
		return nil, err
	}
	if n.Repeated() {
		return arrow.ListOf(elem), nil
	}
	return elem, nil
}

func leafType(t parquet.Type) (arrow.DataType, error) {
	lt := t.LogicalType()
	switch t.Kind() {
	case parquet.Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case parquet.Int32:
		if lt != nil && lt.Integer != nil {
			switch {
			case lt.Integer.IsSigned && lt.Integer.BitWidth == 8:
				return arrow.PrimitiveTypes.Int8, nil
			case lt.Integer.IsSigned && lt.Integer.BitWidth == 16:
				return arrow.PrimitiveTypes.Int16, nil
			case !lt.Integer.IsSigned && lt.Integer.BitWidth == 8:
				return arrow.PrimitiveTypes.Uint8, nil
			case !lt.Integer.IsSigned && lt.Integer.BitWidth == 16:
				return arrow.PrimitiveTypes.Uint16, nil
			case !lt.Integer.IsSigned:
				return arrow.PrimitiveTypes.Uint32, nil
			}
		}
		return arrow.PrimitiveTypes.Int32, nil
	case parquet.Int64:
		if lt != nil && lt.Integer != nil && !lt.Integer.IsSigned {
			return arrow.PrimitiveTypes.Uint64, nil
		}
		return arrow.PrimitiveTypes.Int64, nil
	case parquet.Float:
		return arrow.PrimitiveTypes.Float32, nil
	case parquet.Double:
		return arrow.PrimitiveTypes.Float64, nil
	case parquet.ByteArray:
		return arrow.BinaryTypes.String, nil
	}
	return nil, fmt.Errorf("unsupported parquet type %s", t)
}

// toValue converts element i of arr to a parquet value.
func toValue(arr arrow.Array, i int) parquet.Value {
	if arr.IsNull(i) {
		return parquet.NullValue()
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return parquet.BooleanValue(a.Value(i))
	case *array.Int8:
		return parquet.Int32Value(int32(a.Value(i)))
	case *array.Int16:
		return parquet.Int32Value(int32(a.Value(i)))
	case *array.Int32:
		return parquet.Int32Value(a.Value(i))
	case *array.Int64:
		return parquet.Int64Value(a.Value(i))
	case *array.Uint8:
		return parquet.Int32Value(int32(a.Value(i)))
	case *array.Uint16:
		return parquet.Int32Value(int32(a.Value(i)))
	case *array.Uint32:
		return parquet.Int32Value(int32(a.Value(i)))
	case *array.Uint64:
		return parquet.Int64Value(int64(a.Value(i)))
	case *array.Float32:
		return parquet.FloatValue(a.Value(i))
	case *array.Float64:
		return parquet.DoubleValue(a.Value(i))
	case *array.String:
		return parquet.ByteArrayValue([]byte(a.Value(i)))
	}
	return parquet.NullValue()
}

// appendValue appends a parquet value to an Arrow builder of the type
// returned by leafType.
func appendValue(b array.Builder, v parquet.Value) {
	if v.IsNull() {
		b.AppendNull()
		return
	}
	switch bb := b.(type) {
	case *array.BooleanBuilder:
		bb.Append(v.Boolean())
	case *array.Int8Builder:
		bb.Append(int8(v.Int32()))
	case *array.Int16Builder:
		bb.Append(int16(v.Int32()))
	case *array.Int32Builder:
		bb.Append(v.Int32())
	case *array.Int64Builder:
		bb.Append(v.Int64())
	case *array.Uint8Builder:
		bb.Append(uint8(v.Int32()))
	case *array.Uint16Builder:
		bb.Append(uint16(v.Int32()))
	case *array.Uint32Builder:
		bb.Append(uint32(v.Int32()))
	case *array.Uint64Builder:
		bb.Append(uint64(v.Int64()))
	case *array.Float32Builder:
		bb.Append(v.Float())
	case *array.Float64Builder:
		bb.Append(v.Double())
	case *array.StringBuilder:
		bb.Append(string(v.ByteArray()))
	default:
		b.AppendNull()
	}
}
