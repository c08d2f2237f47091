package gchist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kmerbase/barcodescan/gchist"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/stretchr/testify/require"
)

func writeHist(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "gc_hist.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndSkipShard(t *testing.T) {
	dir := t.TempDir()
	path := writeHist(t, dir, `{
		"k": 4, "num_shards": 2,
		"shards": [
			{"shard": 0, "gc_hist": [0, 0, 5, 0, 0]},
			{"shard": 1, "gc_hist": [1, 0, 0, 0, 1]}
		]
	}`)

	h, err := gchist.Load(path, 4)
	require.NoError(t, err)

	// shard 0 only has bucket 2 (50% gc) populated.
	require.True(t, h.SkipShard(0, 0, 25))   // buckets 0,1 in range, both zero
	require.False(t, h.SkipShard(0, 40, 60)) // bucket 2 in range and nonzero

	// shard 1 has bucket 0 and 4 populated.
	require.False(t, h.SkipShard(1, 0, 10))
}

func TestLoadRejectsKMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeHist(t, dir, `{"k": 3, "num_shards": 1, "shards": [{"shard": 0, "gc_hist": [0,0,0,0]}]}`)

	_, err := gchist.Load(path, 4)
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.BadIndex, kind)
}

func TestLoadRejectsWrongBucketCount(t *testing.T) {
	dir := t.TempDir()
	path := writeHist(t, dir, `{"k": 4, "num_shards": 1, "shards": [{"shard": 0, "gc_hist": [1,2,3]}]}`)

	_, err := gchist.Load(path, 4)
	require.Error(t, err)
}
