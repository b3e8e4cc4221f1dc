package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VanDung-dev/tableio/tableerr"
)

func TestOptionsPopAndClone(t *testing.T) {
	opts := Options{"a": 1, "b": "x"}
	clone := opts.Clone()

	v, ok := clone.Pop("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	_, ok = clone.Pop("a")
	require.False(t, ok)

	require.Contains(t, opts, "a")
	require.Equal(t, []string{"b"}, clone.Keys())

	var nilOpts Options
	require.NotNil(t, nilOpts.Clone())
}

func TestOptionsAccessors(t *testing.T) {
	opts := Options{
		"s":     "tree",
		"list":  []any{"a", "b"},
		"one":   "a",
		"n":     float64(10),
		"ns":    "12",
		"frac":  1.5,
		"flag":  "true",
		"wrong": 3,
	}

	s, err := opts.String("s")
	require.NoError(t, err)
	require.Equal(t, "tree", s)

	missing, err := opts.String("missing")
	require.NoError(t, err)
	require.Empty(t, missing)

	list, err := opts.Strings("list")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, list)

	one, err := opts.Strings("one")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, one)

	n, err := opts.Int("n", 0)
	require.NoError(t, err)
	require.Equal(t, int64(10), n)

	ns, err := opts.Int("ns", 0)
	require.NoError(t, err)
	require.Equal(t, int64(12), ns)

	def, err := opts.Int("missing", -1)
	require.NoError(t, err)
	require.Equal(t, int64(-1), def)

	_, err = opts.Int("frac", 0)
	var invalid *tableerr.InvalidOptionError
	require.True(t, errors.As(err, &invalid))
	require.Equal(t, "frac", invalid.Key)

	flag, err := opts.Bool("flag", false)
	require.NoError(t, err)
	require.True(t, flag)

	_, err = opts.String("wrong")
	require.Error(t, err)
	_, err = opts.Strings("wrong")
	require.Error(t, err)
}
