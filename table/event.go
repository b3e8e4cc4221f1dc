package table

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// DefaultTimeColumn is the column EventRate bins when none is named.
const DefaultTimeColumn = "time"

// EventRate bins the events of an event table by timeColumn into strides
// of the given width (seconds) and returns a table with "time" (bin start)
// and "rate" (events per second) columns. When end <= start the span is
// taken from the data.
func (t *Table) EventRate(timeColumn string, stride, start, end float64) (*Table, error) {
	if t.kind != KindEvent {
		return nil, fmt.Errorf("event rate requires an %s, got %s", KindEvent, t.kind)
	}
	if stride <= 0 {
		return nil, fmt.Errorf("stride must be positive, got %g", stride)
	}
	if timeColumn == "" {
		timeColumn = DefaultTimeColumn
	}

	col, ok := t.Column(timeColumn)
	if !ok {
		return nil, fmt.Errorf("time column %q not found", timeColumn)
	}
	times, err := Float64s(col)
	if err != nil {
		return nil, fmt.Errorf("time column %q: %w", timeColumn, err)
	}

	if end <= start {
		if len(times) == 0 {
			return nil, fmt.Errorf("cannot infer span of an empty table")
		}
		start, end = math.Inf(1), math.Inf(-1)
		for _, v := range times {
			start = math.Min(start, v)
			end = math.Max(end, v)
		}
		end = math.Nextafter(end, math.Inf(1))
	}

	nbins := int(math.Ceil((end - start) / stride))
	counts := make([]float64, nbins)
	for _, v := range times {
		if v < start || v >= end {
			continue
		}
		idx := int((v - start) / stride)
		if idx >= nbins {
			idx = nbins - 1
		}
		counts[idx]++
	}

	mem := memory.DefaultAllocator
	tb := array.NewFloat64Builder(mem)
	defer tb.Release()
	rb := array.NewFloat64Builder(mem)
	defer rb.Release()
	for i, c := range counts {
		tb.Append(start + float64(i)*stride)
		rb.Append(c / stride)
	}

	timesArr := tb.NewFloat64Array()
	defer timesArr.Release()
	rates := rb.NewFloat64Array()
	defer rates.Release()

	return FromColumns(KindTable, []string{"time", "rate"}, []arrow.Array{timesArr, rates})
}

// Float64s returns the non-null values of a numeric array as float64.
func Float64s(arr arrow.Array) ([]float64, error) {
	out := make([]float64, 0, arr.Len()-arr.NullN())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		var v float64
		switch a := arr.(type) {
		case *array.Int8:
			v = float64(a.Value(i))
		case *array.Int16:
			v = float64(a.Value(i))
		case *array.Int32:
			v = float64(a.Value(i))
		case *array.Int64:
			v = float64(a.Value(i))
		case *array.Uint8:
			v = float64(a.Value(i))
		case *array.Uint16:
			v = float64(a.Value(i))
		case *array.Uint32:
			v = float64(a.Value(i))
		case *array.Uint64:
			v = float64(a.Value(i))
		case *array.Float32:
			v = float64(a.Value(i))
		case *array.Float64:
			v = a.Value(i)
		default:
			return nil, fmt.Errorf("type %s is not numeric", arr.DataType())
		}
		out = append(out, v)
	}
	return out, nil
}
