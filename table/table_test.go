package table

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func eventRecord(t *testing.T) arrow.Record {
	t.Helper()

	schema := arrow.NewSchema(
		[]arrow.Field{
			{Name: "time", Type: arrow.PrimitiveTypes.Float64},
			{Name: "snr", Type: arrow.PrimitiveTypes.Float32},
			{Name: "channel", Type: arrow.BinaryTypes.String},
		},
		nil,
	)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.Float64Builder).AppendValues([]float64{0.1, 0.2, 1.5, 2.5, 2.7, 2.9}, nil)
	b.Field(1).(*array.Float32Builder).AppendValues([]float32{5, 8, 12, 6, 20, 7}, nil)
	b.Field(2).(*array.StringBuilder).AppendValues([]string{"H1", "L1", "H1", "H1", "L1", "V1"}, nil)

	rec := b.NewRecord()
	t.Cleanup(rec.Release)
	return rec
}

func TestNewRetainsRecord(t *testing.T) {
	rec := eventRecord(t)
	tbl := New(KindEvent, rec)
	defer tbl.Release()

	require.Equal(t, KindEvent, tbl.Kind())
	require.Equal(t, int64(6), tbl.NumRows())
	require.Equal(t, 3, tbl.NumCols())
	require.Equal(t, []string{"time", "snr", "channel"}, tbl.ColumnNames())

	col, ok := tbl.Column("snr")
	require.True(t, ok)
	require.Equal(t, arrow.FLOAT32, col.DataType().ID())

	_, ok = tbl.Column("missing")
	require.False(t, ok)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("event")
	require.NoError(t, err)
	require.Equal(t, KindEvent, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	require.Equal(t, KindTable, k)

	_, err = ParseKind("matrix")
	require.Error(t, err)
}

func TestSelect(t *testing.T) {
	tbl := New(KindTable, eventRecord(t))
	defer tbl.Release()

	sel, err := tbl.Select("channel", "time")
	require.NoError(t, err)
	defer sel.Release()

	require.Equal(t, []string{"channel", "time"}, sel.ColumnNames())
	require.Equal(t, tbl.NumRows(), sel.NumRows())

	_, err = tbl.Select("nope")
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	tbl := New(KindEvent, eventRecord(t))
	defer tbl.Release()

	out, err := tbl.Filter(context.Background(), "snr > 6.0", `channel == "H1"`)
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, KindEvent, out.Kind())
	require.Equal(t, int64(1), out.NumRows())
}

func TestFromColumnsAndEqual(t *testing.T) {
	mem := memory.NewGoAllocator()
	ib := array.NewInt64Builder(mem)
	defer ib.Release()
	ib.AppendValues([]int64{1, 2, 3}, nil)
	ints := ib.NewInt64Array()
	defer ints.Release()

	a, err := FromColumns(KindTable, []string{"n"}, []arrow.Array{ints})
	require.NoError(t, err)
	defer a.Release()

	b, err := FromColumns(KindEvent, []string{"n"}, []arrow.Array{ints})
	require.NoError(t, err)
	defer b.Release()

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(nil))

	_, err = FromColumns(KindTable, []string{"n", "m"}, []arrow.Array{ints})
	require.Error(t, err)
}

func TestEventRate(t *testing.T) {
	tbl := New(KindEvent, eventRecord(t))
	defer tbl.Release()

	rate, err := tbl.EventRate("time", 1, 0, 3)
	require.NoError(t, err)
	defer rate.Release()

	require.Equal(t, []string{"time", "rate"}, rate.ColumnNames())
	col, _ := rate.Column("rate")
	require.Equal(t, []float64{2, 1, 3}, col.(*array.Float64).Float64Values())

	bins, _ := rate.Column("time")
	require.Equal(t, []float64{0, 1, 2}, bins.(*array.Float64).Float64Values())
}

func TestEventRate_RequiresEventKind(t *testing.T) {
	tbl := New(KindTable, eventRecord(t))
	defer tbl.Release()

	_, err := tbl.EventRate("time", 1, 0, 3)
	require.Error(t, err)

	ev := tbl.As(KindEvent)
	defer ev.Release()
	_, err = ev.EventRate("channel", 1, 0, 3)
	require.Error(t, err)
}

func TestConcat(t *testing.T) {
	mem := memory.NewGoAllocator()
	rec := eventRecord(t)

	joined, err := Concat([]arrow.Record{rec, rec}, mem)
	require.NoError(t, err)
	defer joined.Release()
	require.Equal(t, 2*rec.NumRows(), joined.NumRows())
	require.Equal(t, []float64{0.1, 0.2}, joined.Column(0).(*array.Float64).Float64Values()[6:8])

	single, err := Concat([]arrow.Record{rec}, mem)
	require.NoError(t, err)
	defer single.Release()
	require.True(t, array.RecordEqual(rec, single))

	empty := Empty(rec.Schema(), mem)
	defer empty.Release()
	require.Zero(t, empty.NumRows())

	_, err = Concat(nil, mem)
	require.Error(t, err)
}
