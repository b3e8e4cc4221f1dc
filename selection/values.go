package selection

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/google/cel-go/cel"
)

func celType(dt arrow.DataType) (*cel.Type, bool) {
	switch dt.ID() {
	case arrow.BOOL:
		return cel.BoolType, true
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return cel.IntType, true
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return cel.UintType, true
	case arrow.FLOAT32, arrow.FLOAT64:
		return cel.DoubleType, true
	case arrow.STRING, arrow.LARGE_STRING:
		return cel.StringType, true
	case arrow.LIST:
		elem, ok := celType(dt.(*arrow.ListType).Elem())
		if !ok {
			return nil, false
		}
		return cel.ListType(elem), true
	}
	return nil, false
}

// Value returns the Go value of arr at row i widened to the types the
// expression language works with: int64, uint64, float64, bool, string or
// []any for lists. The second result is false for nulls and unsupported
// array types.
func Value(arr arrow.Array, i int) (any, bool) {
	if arr.IsNull(i) {
		return nil, false
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i), true
	case *array.Int8:
		return int64(a.Value(i)), true
	case *array.Int16:
		return int64(a.Value(i)), true
	case *array.Int32:
		return int64(a.Value(i)), true
	case *array.Int64:
		return a.Value(i), true
	case *array.Uint8:
		return uint64(a.Value(i)), true
	case *array.Uint16:
		return uint64(a.Value(i)), true
	case *array.Uint32:
		return uint64(a.Value(i)), true
	case *array.Uint64:
		return a.Value(i), true
	case *array.Float32:
		return float64(a.Value(i)), true
	case *array.Float64:
		return a.Value(i), true
	case *array.String:
		return a.Value(i), true
	case *array.LargeString:
		return a.Value(i), true
	case *array.List:
		start, end := a.ValueOffsets(i)
		values := a.ListValues()
		out := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			v, _ := Value(values, int(j))
			out = append(out, v)
		}
		return out, true
	}
	return nil, false
}
