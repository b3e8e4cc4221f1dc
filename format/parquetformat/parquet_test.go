package parquetformat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/VanDung-dev/tableio/registry"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

func mixedTable(t *testing.T) *table.Table {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "z", Type: arrow.PrimitiveTypes.Float64},
		{Name: "a", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		{Name: "n", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "ifo", Type: arrow.BinaryTypes.String},
		{Name: "xs", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32)},
	}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.Float64Builder).AppendValues([]float64{0.5, 1.5, 2.5}, nil)
	b.Field(1).(*array.Int16Builder).AppendValues([]int16{-3, 0, 7}, []bool{true, false, true})
	b.Field(2).(*array.Uint32Builder).AppendValues([]uint32{1, 4000000000, 3}, nil)
	b.Field(3).(*array.BooleanBuilder).AppendValues([]bool{true, false, true}, nil)
	b.Field(4).(*array.StringBuilder).AppendValues([]string{"H1", "L1", "V1"}, nil)
	lb := b.Field(5).(*array.ListBuilder)
	vb := lb.ValueBuilder().(*array.Float32Builder)
	lb.Append(true)
	vb.AppendValues([]float32{1, 2}, nil)
	lb.Append(true)
	lb.Append(true)
	vb.AppendValues([]float32{3}, nil)

	rec := b.NewRecord()
	defer rec.Release()
	tbl := table.New(table.KindTable, rec)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestRoundTrip(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg))
	ctx := context.Background()

	for _, codec := range []string{"", "zstd", "gzip", "none"} {
		t.Run("codec="+codec, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "t.parquet")
			var opts registry.Options
			if codec != "" {
				opts = registry.Options{"compression": codec}
			}
			want := mixedTable(t)
			require.NoError(t, reg.Write(ctx, want, path, "", opts))

			got, err := reg.Read(ctx, table.KindTable, path, "", nil)
			require.NoError(t, err)
			defer got.Release()

			require.Equal(t, want.ColumnNames(), got.ColumnNames())
			require.True(t, want.Equal(got), "want %v\ngot %v", want.Record(), got.Record())
		})
	}
}

func TestRead_Selection(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sel.parquet")
	require.NoError(t, reg.Write(ctx, mixedTable(t), path, "", nil))

	got, err := reg.Read(ctx, table.KindEvent, path, "", registry.Options{
		"selection":     []string{"z > 1.0"},
		"include_names": "ifo",
	})
	require.NoError(t, err)
	defer got.Release()

	require.Equal(t, table.KindEvent, got.Kind())
	col, _ := got.Column("ifo")
	require.Equal(t, "L1", col.(*array.String).Value(0))
	require.Equal(t, "V1", col.(*array.String).Value(1))
}

func TestWrite_Errors(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg))
	ctx := context.Background()
	dir := t.TempDir()

	err := reg.Write(ctx, mixedTable(t), filepath.Join(dir, "a.parquet"), "", registry.Options{"compression": "lzo"})
	var invalid *tableerr.InvalidOptionError
	require.True(t, errors.As(err, &invalid))

	mem := memory.NewGoAllocator()
	db := array.NewDate32Builder(mem)
	defer db.Release()
	db.Append(1)
	dates := db.NewArray()
	defer dates.Release()
	tbl, err := table.FromColumns(table.KindTable, []string{"day"}, []arrow.Array{dates})
	require.NoError(t, err)
	defer tbl.Release()

	err = reg.Write(ctx, tbl, filepath.Join(dir, "b.parquet"), "", nil)
	var unsupported *tableerr.UnsupportedColumnError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "day", unsupported.Column)
}
