package shardindex_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/kmerbase/barcodescan/shardindex"
	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte(contents), 0o644))
}

func TestLoadExplicitRanges(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, `{
		"num_shards": 2, "k": 4, "total_bits": 256,
		"shards": [
			{"file": "a.kbit", "start": 0, "end": 128},
			{"file": "b.kbit", "start": 128, "end": 256}
		]
	}`)

	idx, err := shardindex.Load(dir)
	require.NoError(t, err)
	require.Equal(t, 4, idx.K)
	require.Equal(t, uint64(256), idx.TotalBits)
	require.Equal(t, 2, idx.NumShards())

	sid, err := idx.Route(0)
	require.NoError(t, err)
	require.Equal(t, 0, sid)

	sid, err = idx.Route(200)
	require.NoError(t, err)
	require.Equal(t, 1, sid)
	require.Equal(t, filepath.Join(dir, "b.kbit"), idx.Path(sid))

	want := []shardindex.Shard{
		{File: "a.kbit", Start: 0, End: 128},
		{File: "b.kbit", Start: 128, End: 256},
	}
	if diff := cmp.Diff(want, idx.Shards); diff != "" {
		t.Errorf("shard table mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaultRangesAndNames(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, `{"num_shards": 4, "k": 4}`)

	idx, err := shardindex.Load(dir)
	require.NoError(t, err)
	require.Equal(t, uint64(256), idx.TotalBits) // 4^4
	require.Equal(t, "shard_0000.kbit", idx.Shards[0].File)

	sid, err := idx.Route(255)
	require.NoError(t, err)
	require.Equal(t, 3, sid)
}

func TestRouteOutOfRange(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, `{"num_shards": 2, "k": 2}`) // total_bits = 16

	idx, err := shardindex.Load(dir)
	require.NoError(t, err)

	_, err = idx.Route(16)
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.OutOfRange, kind)
}

func TestLoadRejectsGap(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, `{
		"num_shards": 2, "k": 4, "total_bits": 256,
		"shards": [
			{"file": "a.kbit", "start": 0, "end": 100},
			{"file": "b.kbit", "start": 128, "end": 256}
		]
	}`)

	_, err := shardindex.Load(dir)
	require.Error(t, err)
	kind, _ := kerr.Classify(err)
	require.Equal(t, kerr.BadIndex, kind)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := shardindex.Load(t.TempDir())
	require.Error(t, err)
	kind, _ := kerr.Classify(err)
	require.Equal(t, kerr.BadIndex, kind)
}
