package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/VanDung-dev/tableio/metrics"
	"github.com/VanDung-dev/tableio/table"
	"github.com/VanDung-dev/tableio/tableerr"
)

func smallTable(t *testing.T, kind table.Kind) *table.Table {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32}}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	b.Field(0).(*array.Int32Builder).AppendValues([]int32{1, 2, 3}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	tbl := table.New(kind, rec)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestRegisterReader_Conflict(t *testing.T) {
	reg := New()
	fn := func(context.Context, table.Kind, any, Options) (*table.Table, error) { return nil, nil }

	require.NoError(t, reg.RegisterReader("fmt", table.KindTable, fn))

	err := reg.RegisterReader("fmt", table.KindTable, fn)
	var conflict *tableerr.RegistrationConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, "reader", conflict.Role)

	require.NoError(t, reg.RegisterReader("fmt", table.KindTable, fn, Overwrite()))
	require.NoError(t, reg.RegisterReader("fmt", table.KindEvent, fn))
}

func TestReadDispatch(t *testing.T) {
	reg := New()
	want := smallTable(t, table.KindEvent)

	var gotOpts Options
	var gotSource any
	require.NoError(t, reg.RegisterReader("fake", table.KindEvent,
		func(_ context.Context, kind table.Kind, source any, opts Options) (*table.Table, error) {
			gotOpts, gotSource = opts, source
			return want.As(kind), nil
		}))

	opts := Options{"treename": "events"}
	got, err := reg.Read(context.Background(), table.KindEvent, "x.fake", "fake", opts)
	require.NoError(t, err)
	defer got.Release()

	require.Equal(t, table.KindEvent, got.Kind())
	require.Equal(t, "x.fake", gotSource)
	require.Equal(t, "events", gotOpts["treename"])

	// The caller's options are not mutated by the reader.
	delete(gotOpts, "treename")
	require.Equal(t, "events", opts["treename"])
}

func TestReadUnknownFormat(t *testing.T) {
	reg := New()
	_, err := reg.Read(context.Background(), table.KindTable, "x.root", "root", nil)

	var notFound *tableerr.FormatNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "root", notFound.Format)
}

func TestReadIdentifiesFormat(t *testing.T) {
	reg := New()
	want := smallTable(t, table.KindTable)

	reader := func(_ context.Context, kind table.Kind, _ any, _ Options) (*table.Table, error) {
		return want.As(kind), nil
	}
	require.NoError(t, reg.RegisterReader("fake", table.KindTable, reader))
	require.NoError(t, reg.RegisterIdentifier("fake", table.KindTable, IdentifyExtension(".fake")))

	got, err := reg.Read(context.Background(), table.KindTable, "data.fake", "", nil)
	require.NoError(t, err)
	got.Release()

	_, err = reg.Read(context.Background(), table.KindTable, "data.other", "", nil)
	var notIdentified *tableerr.FormatNotIdentifiedError
	require.True(t, errors.As(err, &notIdentified))
	require.Empty(t, notIdentified.Candidates)

	require.NoError(t, reg.RegisterIdentifier("fake2", table.KindTable, IdentifyExtension(".fake")))
	_, err = reg.Read(context.Background(), table.KindTable, "data.fake", "", nil)
	require.True(t, errors.As(err, &notIdentified))
	require.Equal(t, []string{"fake", "fake2"}, notIdentified.Candidates)
}

func TestReadFileSource(t *testing.T) {
	reg := New()
	want := smallTable(t, table.KindTable)

	var gotPath string
	require.NoError(t, reg.RegisterReader("fake", table.KindTable,
		func(_ context.Context, kind table.Kind, source any, _ Options) (*table.Table, error) {
			gotPath, _ = SourcePath(source)
			return want.As(kind), nil
		}))
	require.NoError(t, reg.RegisterIdentifier("fake", table.KindTable, IdentifyExtension(".fake")))

	path := filepath.Join(t.TempDir(), "data.fake")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := reg.Read(context.Background(), table.KindTable, f, "", nil)
	require.NoError(t, err)
	got.Release()
	require.Equal(t, path, gotPath)

	_, err = reg.Read(context.Background(), table.KindTable, 42, "fake", nil)
	require.Error(t, err)
}

func TestWriteDispatchAndMetrics(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	reg := New(WithMetrics(m))
	tbl := smallTable(t, table.KindEvent)

	var wrote string
	require.NoError(t, reg.RegisterWriter("fake", table.KindEvent,
		func(_ context.Context, _ *table.Table, dest string, _ Options) error {
			wrote = dest
			return nil
		}))
	require.NoError(t, reg.RegisterIdentifier("fake", table.KindEvent, IdentifyExtension(".fake")))

	require.NoError(t, reg.Write(context.Background(), tbl, "out.fake", "", nil))
	require.Equal(t, "out.fake", wrote)

	// Only the EventTable writer is registered.
	err := reg.Write(context.Background(), tbl.As(table.KindTable), "out.fake", "fake", nil)
	var notFound *tableerr.FormatNotFoundError
	require.True(t, errors.As(err, &notFound))

	require.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("write", "fake", "EventTable", "ok")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.RowsTotal.WithLabelValues("write", "fake")))
}

func TestWriteError(t *testing.T) {
	reg := New()
	tbl := smallTable(t, table.KindTable)
	boom := errors.New("boom")

	require.NoError(t, reg.RegisterWriter("fake", table.KindTable,
		func(context.Context, *table.Table, string, Options) error { return boom }))

	err := reg.Write(context.Background(), tbl, "out.fake", "fake", nil)
	require.ErrorIs(t, err, boom)
}

func TestFormatsAndUnregister(t *testing.T) {
	reg := New()
	reader := func(context.Context, table.Kind, any, Options) (*table.Table, error) { return nil, nil }
	writer := func(context.Context, *table.Table, string, Options) error { return nil }

	require.NoError(t, reg.RegisterReader("b", table.KindTable, reader))
	require.NoError(t, reg.RegisterWriter("a", table.KindTable, writer))
	require.NoError(t, reg.RegisterIdentifier("a", table.KindTable, IdentifyExtension(".a")))

	infos := reg.Formats()
	require.Len(t, infos, 2)
	require.Equal(t, FormatInfo{Format: "a", Kind: table.KindTable, CanWrite: true, CanIdentify: true}, infos[0])
	require.Equal(t, FormatInfo{Format: "b", Kind: table.KindTable, CanRead: true}, infos[1])

	reg.UnregisterReader("b", table.KindTable)
	reg.UnregisterWriter("a", table.KindTable)
	reg.UnregisterIdentifier("a", table.KindTable)
	require.Empty(t, reg.Formats())
}

func TestIdentifyExtension(t *testing.T) {
	id := IdentifyExtension(".root")
	require.True(t, id(OriginRead, "/data/events.root", nil))
	require.False(t, id(OriginRead, "/data/events.root.gz", nil))
	require.False(t, id(OriginWrite, "/data/events.ROOT", nil))
}

func TestRegisterFormat(t *testing.T) {
	reg := New()
	reader := func(context.Context, table.Kind, any, Options) (*table.Table, error) { return nil, nil }

	require.NoError(t, reg.RegisterFormat("ro", table.Kinds(), reader, nil, IdentifyExtension(".ro")))

	infos := reg.Formats()
	require.Len(t, infos, 2)
	for _, fi := range infos {
		require.True(t, fi.CanRead)
		require.False(t, fi.CanWrite)
		require.True(t, fi.CanIdentify)
	}

	err := reg.RegisterFormat("ro", table.Kinds(), reader, nil, nil)
	var conflict *tableerr.RegistrationConflictError
	require.True(t, errors.As(err, &conflict))
	require.NoError(t, reg.RegisterFormat("ro", table.Kinds(), reader, nil, nil, Overwrite()))
}

func TestRegisterFormat_ConflictLeavesRegistryUnchanged(t *testing.T) {
	reg := New()
	reader := func(context.Context, table.Kind, any, Options) (*table.Table, error) { return nil, nil }
	writer := func(context.Context, *table.Table, string, Options) error { return nil }

	require.NoError(t, reg.RegisterReader("mix", table.KindEvent, reader))

	err := reg.RegisterFormat("mix", table.Kinds(), reader, writer, nil)
	var conflict *tableerr.RegistrationConflictError
	require.True(t, errors.As(err, &conflict))
	require.Equal(t, "reader", conflict.Role)
	require.Equal(t, string(table.KindEvent), conflict.Kind)

	_, ok := reg.GetReader("mix", table.KindTable)
	require.False(t, ok)
	for _, kind := range table.Kinds() {
		_, ok := reg.GetWriter("mix", kind)
		require.False(t, ok, kind)
	}
	require.Len(t, reg.Formats(), 1)
}
