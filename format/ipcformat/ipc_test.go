package ipcformat

import (
	"context"
	"errors"
	"os"
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

func sampleTable(t *testing.T) *table.Table {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "time", Type: arrow.PrimitiveTypes.Float64},
		{Name: "ifo", Type: arrow.BinaryTypes.String},
	}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	b.Field(0).(*array.Float64Builder).AppendValues([]float64{1, 2, 3}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"H1", "L1", "H1"}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	tbl := table.New(table.KindEvent, rec)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestRoundTrip(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg))
	ctx := context.Background()
	dir := t.TempDir()

	for _, tc := range []struct {
		name string
		file string
		opts registry.Options
	}{
		{name: "file", file: "a.arrow"},
		{name: "feather", file: "a.feather", opts: registry.Options{"compression": "zstd"}},
		{name: "stream", file: "a.arrows"},
		{name: "forced stream", file: "b.arrow", opts: registry.Options{"stream": true, "compression": "lz4"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			require.NoError(t, reg.Write(ctx, sampleTable(t), path, "", tc.opts))

			got, err := reg.Read(ctx, table.KindEvent, path, "", nil)
			require.NoError(t, err)
			defer got.Release()
			require.True(t, sampleTable(t).Equal(got))
		})
	}
}

func TestRead_SelectionAndInclude(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sel.arrow")
	require.NoError(t, reg.Write(ctx, sampleTable(t), path, "", nil))

	got, err := reg.Read(ctx, table.KindTable, path, "", registry.Options{
		"include_names": []string{"time"},
		"selection":     `ifo == "H1"`,
	})
	require.NoError(t, err)
	defer got.Release()

	require.Equal(t, []string{"time"}, got.ColumnNames())
	col, _ := got.Column("time")
	require.Equal(t, []float64{1, 3}, col.(*array.Float64).Float64Values())
}

func TestErrors(t *testing.T) {
	reg := registry.New()
	require.NoError(t, Register(reg))
	ctx := context.Background()
	dir := t.TempDir()

	err := reg.Write(ctx, sampleTable(t), filepath.Join(dir, "x.arrow"), "", registry.Options{"compression": "snappy"})
	var invalid *tableerr.InvalidOptionError
	require.True(t, errors.As(err, &invalid))

	bad := filepath.Join(dir, "bad.arrow")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not arrow"), 0o600))
	_, err = reg.Read(ctx, table.KindTable, bad, "", nil)
	require.Error(t, err)

	_, err = reg.Read(ctx, table.KindTable, bad, "", registry.Options{"treename": "x"})
	var unknown *tableerr.UnknownOptionError
	require.True(t, errors.As(err, &unknown))
}
