// Package membership implements the sharded k-mer membership query
// engine: bucket queries by owning shard, load each shard once, probe
// in parallel, and reassemble results in the caller's original order.
package membership

import (
	"context"

	"github.com/kmerbase/barcodescan/kbit"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/kmerbase/barcodescan/kmer"
	"github.com/kmerbase/barcodescan/logger"
	"github.com/kmerbase/barcodescan/shardindex"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ShardLoader abstracts shard byte access so tests can substitute an
// in-memory loader instead of touching the filesystem.
type ShardLoader interface {
	LoadShard(path string) (*kbit.Shard, error)
}

type fileLoader struct{}

func (fileLoader) LoadShard(path string) (*kbit.Shard, error) { return kbit.ReadFile(path) }

// FileLoader is the production ShardLoader backed by kbit.ReadFile.
var FileLoader ShardLoader = fileLoader{}

// Result is one queried k-mer's outcome.
type Result struct {
	Kmer    string
	Present bool
}

// Engine runs membership queries against one shard index.
type Engine struct {
	Index   *shardindex.Index
	Loader  ShardLoader
	Threads int
	Log     logger.Logger
}

// NewEngine constructs an Engine, defaulting Loader to the filesystem,
// Threads to 4, and Log to logger.NopLogger.
func NewEngine(idx *shardindex.Index) *Engine {
	return &Engine{Index: idx, Loader: FileLoader, Threads: 4, Log: logger.NopLogger}
}

func (e *Engine) loader() ShardLoader {
	if e.Loader != nil {
		return e.Loader
	}
	return FileLoader
}

func (e *Engine) log() logger.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logger.NopLogger
}

func (e *Engine) threads() int {
	if e.Threads > 0 {
		return e.Threads
	}
	return 1
}

// Query resolves the membership of every k-mer in kmers, preserving
// input order in the returned slice.
func (e *Engine) Query(ctx context.Context, kmers []string) ([]Result, error) {
	k := e.Index.K
	keys := make([]uint64, len(kmers))
	shardOf := make([]int, len(kmers))
	byShard := make(map[int][]int) // shard idx -> positions in kmers

	for i, s := range kmers {
		v, err := kmer.Encode(s, k)
		if err != nil {
			return nil, errors.Wrapf(err, "k-mer %q", s)
		}
		keys[i] = v
		si, err := e.Index.Route(v)
		if err != nil {
			return nil, err
		}
		shardOf[i] = si
		byShard[si] = append(byShard[si], i)
	}

	present := make([]bool, len(kmers))

	shardIDs := make([]int, 0, len(byShard))
	for si := range byShard {
		shardIDs = append(shardIDs, si)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.threads())

	for _, si := range shardIDs {
		si := si
		positions := byShard[si]
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			path := e.Index.Path(si)
			e.log().Debugf("loading shard %d (%s) for %d probes", si, path, len(positions))
			sh, err := e.loader().LoadShard(path)
			if err != nil {
				return err
			}
			for _, pos := range positions {
				present[pos] = sh.Contains(keys[pos])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Result, len(kmers))
	hits := 0
	for i, s := range kmers {
		out[i] = Result{Kmer: s, Present: present[i]}
		if present[i] {
			hits++
		}
	}
	e.log().Infof("membership query: %d k-mers, %d shards touched, %d present", len(kmers), len(shardIDs), hits)
	return out, nil
}

// QuerySingleFile is the legacy single-bitmap mode: membership against
// one already-loaded KBITv1 shard covering the full key space, with no
// sharding or routing.
func QuerySingleFile(sh *kbit.Shard, k int, kmers []string) ([]Result, error) {
	if sh.K() != k {
		return nil, errors.Wrapf(kerr.ErrBadInput, "bitmap k=%d does not match requested k=%d", sh.K(), k)
	}
	out := make([]Result, len(kmers))
	for i, s := range kmers {
		v, err := kmer.Encode(s, k)
		if err != nil {
			return nil, errors.Wrapf(err, "k-mer %q", s)
		}
		out[i] = Result{Kmer: s, Present: sh.Contains(v)}
	}
	return out, nil
}
