// Package gchist loads the per-shard GC-bucket histogram used only as a
// skip hint for kout==k0 windowed scans.
package gchist

import (
	"encoding/json"
	"os"

	"github.com/kmerbase/barcodescan/kerr"
	"github.com/pkg/errors"
)

type rawEntry struct {
	Shard   int      `json:"shard"`
	GCHist  []uint64 `json:"gc_hist"`
}

type rawHistogram struct {
	K         int        `json:"k"`
	NumShards int        `json:"num_shards"`
	Shards    []rawEntry `json:"shards"`
}

// Histogram holds one length-(k+1) GC-bucket count array per shard.
type Histogram struct {
	K      int
	Counts [][]uint64 // Counts[shardID][gcBucket]
}

// Load parses a GC histogram JSON file and validates it against k.
func Load(path string, k int) (*Histogram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(kerr.ErrBadIndex, "reading %s: %v", path, err)
	}

	var raw rawHistogram
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(kerr.ErrBadIndex, "parsing %s: %v", path, err)
	}

	if raw.K != k {
		return nil, errors.Wrapf(kerr.ErrBadIndex, "gc histogram k (%d) != index k (%d)", raw.K, k)
	}

	numShards := raw.NumShards
	for _, e := range raw.Shards {
		if e.Shard+1 > numShards {
			numShards = e.Shard + 1
		}
	}

	counts := make([][]uint64, numShards)
	for i := range counts {
		counts[i] = make([]uint64, k+1)
	}
	for _, e := range raw.Shards {
		if e.Shard < 0 || e.Shard >= numShards {
			continue
		}
		if len(e.GCHist) != k+1 {
			return nil, errors.Wrapf(kerr.ErrBadIndex, "shard %d gc_hist has %d buckets, want %d", e.Shard, len(e.GCHist), k+1)
		}
		copy(counts[e.Shard], e.GCHist)
	}

	return &Histogram{K: k, Counts: counts}, nil
}

// SkipShard reports whether shard shardID can be skipped entirely for a
// GC%-range filter with kout==k0: true iff every bucket in range
// [gcMinPct*k/100, gcMaxPct*k/100] is zero. Only sound when the
// requested output length equals the histogram's k; callers must not
// consult this for construct_k > k0 (see design notes).
func (h *Histogram) SkipShard(shardID, gcMinPct, gcMaxPct int) bool {
	if shardID < 0 || shardID >= len(h.Counts) {
		return false
	}
	counts := h.Counts[shardID]
	for b := 0; b <= h.K; b++ {
		lhs := b * 100
		lo := gcMinPct * h.K
		hi := gcMaxPct * h.K
		if lhs >= lo && lhs <= hi && counts[b] > 0 {
			return false
		}
	}
	return true
}
