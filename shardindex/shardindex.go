// Package shardindex parses a shard directory's index.json and routes
// keys to the shard that owns them.
package shardindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kmerbase/barcodescan/kerr"
	"github.com/pkg/errors"
)

// Shard describes one on-disk shard's key range.
type Shard struct {
	File  string `json:"file"`
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

type rawIndex struct {
	NumShards int     `json:"num_shards"`
	K         int     `json:"k"`
	TotalBits uint64  `json:"total_bits"`
	Shards    []Shard `json:"shards"`
}

// Index is the parsed shard directory index, with shards sorted by
// Start for binary-search routing.
type Index struct {
	Dir       string
	K         int
	TotalBits uint64
	Shards    []Shard
}

// Load reads dir/index.json, filling in default equal-width ranges and
// the default shard_####.kbit naming convention where start/end are
// absent, and validates full, non-overlapping coverage of
// [0, TotalBits).
func Load(dir string) (*Index, error) {
	path := filepath.Join(dir, "index.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(kerr.ErrBadIndex, "reading %s: %v", path, err)
	}

	var raw rawIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(kerr.ErrBadIndex, "parsing %s: %v", path, err)
	}

	if raw.K <= 0 || raw.K > 32 {
		return nil, errors.Wrapf(kerr.ErrBadIndex, "invalid k=%d in %s", raw.K, path)
	}

	numShards := raw.NumShards
	if numShards == 0 {
		numShards = len(raw.Shards)
	}
	if numShards == 0 {
		return nil, errors.Wrapf(kerr.ErrBadIndex, "%s: no shards", path)
	}

	totalBits := raw.TotalBits
	if totalBits == 0 {
		totalBits = uint64(1) << uint(2*raw.K)
	}

	shards := raw.Shards
	haveRanges := len(shards) == numShards && rangesPresent(shards)
	if len(shards) != numShards || !haveRanges {
		shards = defaultShards(numShards, totalBits)
	}

	sort.Slice(shards, func(i, j int) bool { return shards[i].Start < shards[j].Start })

	if err := validateCoverage(shards, totalBits); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	return &Index{Dir: dir, K: raw.K, TotalBits: totalBits, Shards: shards}, nil
}

func rangesPresent(shards []Shard) bool {
	for _, s := range shards {
		if s.Start == 0 && s.End == 0 {
			return false
		}
	}
	return true
}

func defaultShards(numShards int, totalBits uint64) []Shard {
	width := (totalBits + uint64(numShards) - 1) / uint64(numShards)
	shards := make([]Shard, numShards)
	for i := 0; i < numShards; i++ {
		start := uint64(i) * width
		end := start + width
		if end > totalBits {
			end = totalBits
		}
		shards[i] = Shard{
			File:  fmt.Sprintf("shard_%04d.kbit", i),
			Start: start,
			End:   end,
		}
	}
	return shards
}

func validateCoverage(shards []Shard, totalBits uint64) error {
	if len(shards) == 0 {
		return errors.Wrap(kerr.ErrBadIndex, "no shards")
	}
	if shards[0].Start != 0 {
		return errors.Wrapf(kerr.ErrBadIndex, "gap before first shard: starts at %d", shards[0].Start)
	}
	for i, s := range shards {
		if s.End <= s.Start {
			return errors.Wrapf(kerr.ErrBadIndex, "shard %d has empty/negative range [%d,%d)", i, s.Start, s.End)
		}
		if i > 0 && s.Start != shards[i-1].End {
			return errors.Wrapf(kerr.ErrBadIndex, "shard %d range [%d,%d) doesn't abut previous shard ending at %d",
				i, s.Start, s.End, shards[i-1].End)
		}
	}
	if last := shards[len(shards)-1].End; last != totalBits {
		return errors.Wrapf(kerr.ErrBadIndex, "shards cover up to %d, want %d", last, totalBits)
	}
	return nil
}

// Route returns the index of the shard whose half-open range
// [start, end) contains key.
func (idx *Index) Route(key uint64) (int, error) {
	shards := idx.Shards
	i := sort.Search(len(shards), func(i int) bool { return shards[i].Start > key })
	if i == 0 {
		return 0, errors.Wrapf(kerr.ErrOutOfRange, "key %d not assigned to any shard", key)
	}
	i--
	if key >= shards[i].End {
		return 0, errors.Wrapf(kerr.ErrOutOfRange, "key %d not assigned to any shard", key)
	}
	return i, nil
}

// Path returns the absolute path to shard i's file.
func (idx *Index) Path(i int) string {
	return filepath.Join(idx.Dir, idx.Shards[i].File)
}

// NumShards returns the number of shards in the index.
func (idx *Index) NumShards() int { return len(idx.Shards) }
