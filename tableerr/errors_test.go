package tableerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/VanDung-dev/tableio/tableerr"
)

func TestDataNotFoundError(t *testing.T) {
	err := fmt.Errorf("read: %w", &tableerr.DataNotFoundError{Source: "empty.root", What: "trees"})

	var target *tableerr.DataNotFoundError
	require.True(t, errors.As(err, &target))
	require.Equal(t, "empty.root", target.Source)
	require.Contains(t, err.Error(), "no trees found in empty.root")
}

func TestAmbiguousTreeError_ListsTrees(t *testing.T) {
	err := &tableerr.AmbiguousTreeError{Source: "multi.root", Trees: []string{"t1", "t2", "events"}}
	msg := err.Error()

	for _, name := range []string{`"t1"`, `"t2"`, `"events"`, "multi.root", "treename"} {
		require.Contains(t, msg, name)
	}
}

func TestInvalidOptionError_Unwrap(t *testing.T) {
	cause := errors.New("not an int")
	err := fmt.Errorf("parse: %w", &tableerr.InvalidOptionError{Key: "start", Err: cause})
	require.ErrorIs(t, err, cause)
}

func TestFormatNotIdentifiedError(t *testing.T) {
	none := &tableerr.FormatNotIdentifiedError{Op: "read", Path: "x.dat"}
	require.Contains(t, none.Error(), "could not be identified")

	many := &tableerr.FormatNotIdentifiedError{Op: "read", Path: "x.dat", Candidates: []string{"a", "b"}}
	require.Contains(t, many.Error(), "a, b")
}
