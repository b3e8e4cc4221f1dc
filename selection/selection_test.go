package selection

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func testRecord(t *testing.T) arrow.Record {
	t.Helper()

	schema := arrow.NewSchema(
		[]arrow.Field{
			{Name: "a", Type: arrow.PrimitiveTypes.Int64},
			{Name: "b", Type: arrow.PrimitiveTypes.Int64},
			{Name: "x", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
			{Name: "name", Type: arrow.BinaryTypes.String},
			{Name: "not.an.ident", Type: arrow.PrimitiveTypes.Int32},
		},
		nil,
	)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.Int64Builder).AppendValues([]int64{-1, 0, 1, 2, 3, 6}, nil)
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{1, 2, 3, 4, 5, 6}, nil)
	b.Field(2).(*array.Float64Builder).AppendValues([]float64{0.5, 1.5, 2.5, 0, 4.5, 5.5},
		[]bool{true, true, true, false, true, true})
	b.Field(3).(*array.StringBuilder).AppendValues([]string{"u", "v", "w", "x", "y", "z"}, nil)
	b.Field(4).(*array.Int32Builder).AppendValues([]int32{1, 1, 1, 1, 1, 1}, nil)

	rec := b.NewRecord()
	t.Cleanup(rec.Release)
	return rec
}

func TestJoin(t *testing.T) {
	require.Equal(t, "a>0 && b<5", Join([]string{"a>0", "b<5"}))
	require.Equal(t, "a>0", Join([]string{"a>0"}))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"nil", nil, "", false},
		{"string", "a>0 && b<5", "a>0 && b<5", false},
		{"strings", []string{"a>0", "b<5"}, "a>0 && b<5", false},
		{"any strings", []any{"a>0", "b<5"}, "a>0 && b<5", false},
		{"any mixed", []any{"a>0", 5}, "", true},
		{"int", 5, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_InvalidExpression(t *testing.T) {
	rec := testRecord(t)

	_, err := Compile("a >>= 0", rec.Schema())
	require.Error(t, err)

	_, err = Compile("missing > 0", rec.Schema())
	require.Error(t, err)
}

func TestCompile_NonBoolResult(t *testing.T) {
	rec := testRecord(t)
	_, err := Compile("a + b", rec.Schema())
	require.Error(t, err)
}

func TestFilter_SequenceMatchesJoinedString(t *testing.T) {
	rec := testRecord(t)
	ctx := context.Background()

	joined, err := Normalize([]string{"a>0", "b<5"})
	require.NoError(t, err)

	fromList, err := Apply(ctx, rec, joined)
	require.NoError(t, err)
	defer fromList.Release()

	fromString, err := Apply(ctx, rec, "a>0 && b<5")
	require.NoError(t, err)
	defer fromString.Release()

	require.Equal(t, int64(2), fromList.NumRows())
	require.True(t, array.RecordEqual(fromList, fromString))

	got := fromList.Column(0).(*array.Int64).Int64Values()
	require.Equal(t, []int64{1, 2}, got)
}

func TestFilter_CrossTypeAndStrings(t *testing.T) {
	rec := testRecord(t)

	out, err := Apply(context.Background(), rec, `x > 2 && name != "z"`)
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, []string{"w", "y"}, []string{
		out.Column(3).(*array.String).Value(0),
		out.Column(3).(*array.String).Value(1),
	})
}

func TestMask_NullRowsExcluded(t *testing.T) {
	rec := testRecord(t)

	prg, err := Compile("x >= 0.0", rec.Schema())
	require.NoError(t, err)

	mask, err := prg.Mask(context.Background(), rec, nil)
	require.NoError(t, err)
	defer mask.Release()

	require.False(t, mask.Value(3))
	require.True(t, mask.Value(0))
}

func TestApply_EmptyExpression(t *testing.T) {
	rec := testRecord(t)

	out, err := Apply(context.Background(), rec, "  ")
	require.NoError(t, err)
	defer out.Release()

	require.Equal(t, rec.NumRows(), out.NumRows())
}

func TestMask_Cancelled(t *testing.T) {
	rec := testRecord(t)
	prg, err := Compile("a > 0", rec.Schema())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = prg.Mask(ctx, rec, nil)
	require.ErrorIs(t, err, context.Canceled)
}
