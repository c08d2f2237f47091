package kerr_test

import (
	"testing"

	"github.com/kmerbase/barcodescan/kerr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	wrapped := errors.Wrap(kerr.ErrBadCursor, "parsing token")
	kind, ok := kerr.Classify(wrapped)
	require.True(t, ok)
	require.Equal(t, kerr.BadCursor, kind)
}

func TestClassifyUnknown(t *testing.T) {
	_, ok := kerr.Classify(errors.New("something else"))
	require.False(t, ok)
}

func TestClassifyNil(t *testing.T) {
	kind, ok := kerr.Classify(nil)
	require.False(t, ok)
	require.Equal(t, kerr.Unknown, kind)
}

func TestExitCodesDistinct(t *testing.T) {
	seen := map[int]kerr.Kind{}
	kinds := []kerr.Kind{kerr.BadInput, kerr.BadCursor, kerr.BadIndex, kerr.ShardIo, kerr.DecodeFail, kerr.OutOfRange, kerr.ConfigConflict}
	for _, k := range kinds {
		code := k.ExitCode()
		if prev, ok := seen[code]; ok {
			t.Fatalf("exit code %d reused by %v and %v", code, prev, k)
		}
		seen[code] = k
	}
}
