// Package window implements the windowed multi-shard streaming search:
// W lanes, each bound to one shard permutation slot, refilled in
// parallel and drained deterministically in round-robin bursts, with a
// resumable BCW2 cursor at the boundary.
package window

import (
	"context"
	"sync"

	"github.com/kmerbase/barcodescan/cursor"
	"github.com/kmerbase/barcodescan/gchist"
	"github.com/kmerbase/barcodescan/kbit"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/kmerbase/barcodescan/lane"
	"github.com/kmerbase/barcodescan/logger"
	"github.com/kmerbase/barcodescan/permute"
	"github.com/kmerbase/barcodescan/shardindex"
	"github.com/kmerbase/barcodescan/substr"
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

// Request is one windowed search call's parameters.
type Request struct {
	K0, Kout           int
	GCMinPct, GCMaxPct int
	Substring          string
	ReverseComplement  bool
	Limit              int
	Window             int
	Burst              int
	RefillChunk        int
	Threads            int
	RandomAccess       bool
	Seed               uint64 // used only when RandomAccess and no cursor
	Cursor             string // "" for a fresh search
}

// Result is one page of a windowed search.
type Result struct {
	Values    []uint64
	HasMore   bool
	Cursor    string
	ShardsHit int
}

// Engine runs windowed searches against one shard index + GC histogram.
type Engine struct {
	Index  *shardindex.Index
	Hist   *gchist.Histogram
	Loader ShardLoader
	Log    logger.Logger
}

// NewEngine constructs an Engine, defaulting Loader to the filesystem
// and Log to logger.NopLogger.
func NewEngine(idx *shardindex.Index, hist *gchist.Histogram) *Engine {
	return &Engine{Index: idx, Hist: hist, Loader: FileLoader, Log: logger.NopLogger}
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

// Run executes one page of a windowed search, applying req.Cursor (if
// set) to resume a prior page.
func (e *Engine) Run(ctx context.Context, req Request) (Result, error) {
	if req.Kout < req.K0 {
		return Result{}, errors.Wrapf(kerr.ErrConfigConflict, "construct_k (%d) must be >= base k (%d)", req.Kout, req.K0)
	}
	if req.Kout > 18 && req.K0 != 18 {
		return Result{}, errors.Wrapf(kerr.ErrConfigConflict, "kout>18 expansion requires k0=18, got k0=%d", req.K0)
	}
	if req.K0 < 18 && req.Kout != req.K0 {
		return Result{}, errors.Wrapf(kerr.ErrConfigConflict, "expansion disabled for k0=%d", req.K0)
	}

	numShards := e.Index.NumShards()

	filterPats, err := compilePatterns(req)
	if err != nil {
		return Result{}, err
	}
	filt := lane.Filter{GCMinPct: req.GCMinPct, GCMaxPct: req.GCMaxPct, Patterns: filterPats}

	seed := req.Seed
	if req.RandomAccess && seed == 0 {
		seed = 1
	}

	var perm []uint32
	if req.RandomAccess {
		perm = permute.Build(numShards, seed)
	} else {
		perm = permute.Identity(numShards)
	}

	nextPermPos := uint32(0)
	laneStates := make([]cursor.LaneState, req.Window)

	if req.Cursor != "" {
		in, err := cursor.Decode(req.Cursor)
		if err != nil {
			return Result{}, err
		}
		if err := in.Validate(numShards, req.K0, req.Kout, req.Window, req.Burst, req.RandomAccess); err != nil {
			return Result{}, err
		}
		if req.RandomAccess {
			seed = in.Seed
			if seed == 0 {
				seed = 1
			}
			perm = permute.Build(numShards, seed)
		}
		nextPermPos = in.NextPermPos
		laneStates = in.Lanes
	}

	lanes := make([]lane.Lane, req.Window)
	var mu sync.Mutex // guards nextPermPos and lane assignment during parallel refill

	loadLaneFromState := func(i int, st cursor.LaneState) bool {
		lanes[i] = lane.Lane{}
		if !st.Active || int(st.PermPos) >= numShards {
			return false
		}
		shardIdx := int(perm[st.PermPos])
		path := e.Index.Path(shardIdx)
		e.log().Debugf("lane %d resuming shard %d (%s)", i, shardIdx, path)
		sh, err := e.loader().LoadShard(path)
		if err != nil {
			return false
		}
		lanes[i].Active = true
		lanes[i].PermPos = st.PermPos
		lanes[i].ShardIdx = shardIdx
		lanes[i].Shard = sh
		if req.Kout == req.K0 {
			lanes[i].After = st.After
		} else {
			lanes[i].ParentAnchor = st.ParentAnchor
			lanes[i].ChildPresent = st.ChildPresent
			lanes[i].L = st.L
			lanes[i].LeftIdx = st.LeftIdx
			lanes[i].RightIdx = st.RightIdx
		}
		return true
	}

	for i := 0; i < req.Window && i < len(laneStates); i++ {
		if laneStates[i].Active {
			if !loadLaneFromState(i, laneStates[i]) {
				laneStates[i].Active = false
			}
		}
	}

	tryFillEmptyLane := func(i int) bool {
		mu.Lock()
		if lanes[i].Active {
			mu.Unlock()
			return true
		}
		for nextPermPos < uint32(numShards) {
			ppos := nextPermPos
			nextPermPos++
			shardIdx := int(perm[ppos])
			mu.Unlock()

			path := e.Index.Path(shardIdx)
			e.log().Debugf("lane %d loading shard %d (%s)", i, shardIdx, path)
			sh, err := e.loader().LoadShard(path)
			if err != nil {
				return false
			}

			mu.Lock()
			lanes[i] = lane.Lane{Active: true, PermPos: ppos, ShardIdx: shardIdx, Shard: sh}
			if req.Kout == req.K0 {
				lanes[i].ResetKOnly()
			} else {
				lanes[i].ResetExpand()
			}
			mu.Unlock()
			return true
		}
		mu.Unlock()
		return false
	}

	for i := 0; i < req.Window; i++ {
		if !lanes[i].Active {
			tryFillEmptyLane(i)
		}
	}

	need := req.Limit + 1
	outVals := make([]uint64, 0, need)
	lastLane := -1 // lane the most recent value was taken from
	shardsLoaded := 0
	for i := range lanes {
		if lanes[i].Shard != nil {
			shardsLoaded++
		}
	}

	for len(outVals) < need {
		anyActive := false
		for i := range lanes {
			if lanes[i].Active {
				anyActive = true
				break
			}
		}
		if !anyActive {
			break
		}

		if err := e.refillParallel(ctx, lanes, req, filt, tryFillEmptyLane, &mu, &shardsLoaded); err != nil {
			return Result{}, err
		}

		emittedAny := false
		for i := 0; i < req.Window && len(outVals) < need; i++ {
			if !lanes[i].Active {
				continue
			}
			took := 0
			for took < req.Burst && len(outVals) < need {
				if !lanes[i].HasBuffered() {
					break
				}
				outVals = append(outVals, lanes[i].Take(req.K0, req.Kout))
				lastLane = i
				took++
				emittedAny = true
			}
		}

		if !emittedAny {
			still := false
			for i := range lanes {
				if lanes[i].Active {
					still = true
					break
				}
			}
			if !still {
				break
			}
		}
	}

	hasMore := false
	if len(outVals) > req.Limit {
		outVals = outVals[:req.Limit]
		hasMore = true
		// Put the lookahead value back so the next page starts with it.
		lanes[lastLane].BufPos--
	} else {
		for i := range lanes {
			if !lanes[i].Active {
				continue
			}
			if lanes[i].HasBuffered() {
				hasMore = true
				break
			}
			if req.Kout > req.K0 {
				hasMore = true
				break
			}
		}
		if !hasMore && nextPermPos < uint32(numShards) {
			hasMore = true
		}
	}

	res := Result{Values: outVals, HasMore: hasMore, ShardsHit: shardsLoaded}
	e.log().Infof("stream page: %d values, %d shards loaded, has_more=%v", len(outVals), shardsLoaded, hasMore)
	if !hasMore {
		return res, nil
	}

	out := &cursor.State{
		RandomAccess: req.RandomAccess,
		K0:           uint8(req.K0),
		Kout:         uint8(req.Kout),
		D:            uint8(req.Kout - req.K0),
		NumShards:    uint32(numShards),
		Seed:         seed,
		NextPermPos:  nextPermPos,
		Window:       uint16(req.Window),
		Burst:        uint16(req.Burst),
		Lanes:        make([]cursor.LaneState, req.Window),
	}
	for i := 0; i < req.Window; i++ {
		if !lanes[i].Active {
			out.Lanes[i] = cursor.LaneState{Active: false}
			continue
		}
		st := cursor.LaneState{Active: true, PermPos: lanes[i].PermPos}
		if req.Kout == req.K0 {
			st.Mode = 0
			st.After = lanes[i].After
			if lanes[i].HasBuffered() {
				// Resume at the first buffered value not yet returned.
				st.After = lanes[i].Buf[lanes[i].BufPos] - 1
			}
		} else {
			st.Mode = 1
			st.ParentAnchor = lanes[i].ParentAnchor
			st.ChildPresent = lanes[i].ChildPresent
			st.L = lanes[i].L
			st.LeftIdx = lanes[i].LeftIdx
			st.RightIdx = lanes[i].RightIdx
		}
		out.Lanes[i] = st
	}
	res.Cursor = cursor.Encode(out)
	return res, nil
}

func (e *Engine) refillParallel(ctx context.Context, lanes []lane.Lane, req Request, filt lane.Filter, tryFillEmptyLane func(int) bool, mu *sync.Mutex, shardsLoaded *int) error {
	g, _ := errgroup.WithContext(ctx)
	threads := req.Threads
	if threads > req.Window {
		threads = req.Window
	}
	if threads < 1 {
		threads = 1
	}

	idxCh := make(chan int, req.Window)
	for i := 0; i < req.Window; i++ {
		idxCh <- i
	}
	close(idxCh)

	for t := 0; t < threads; t++ {
		g.Go(func() error {
			for i := range idxCh {
				if !lanes[i].Active {
					continue
				}
				if lanes[i].HasBuffered() {
					continue
				}

				start, end, err := e.shardRange(lanes[i].ShardIdx)
				if err != nil {
					return err
				}
				if e.Hist != nil && req.Kout == req.K0 {
					if e.Hist.SkipShard(lanes[i].ShardIdx, req.GCMinPct, req.GCMaxPct) {
						lanes[i].Active = false
					}
				}
				if lanes[i].Active {
					lanes[i].Refill(req.K0, req.Kout, filt, req.RefillChunk, start, end)
					if !lanes[i].Active && lanes[i].HasBuffered() {
						// The shard ran out with values still buffered: keep
						// the lane until they are drained; its next refill
						// starts at end and retires it.
						lanes[i].Active = true
						lanes[i].After = end - 1
						lanes[i].ParentAnchor, lanes[i].ChildPresent = end-1, false
					}
				}

				if !lanes[i].Active {
					lanes[i].Shard = nil
					if tryFillEmptyLane(i) {
						mu.Lock()
						*shardsLoaded++
						mu.Unlock()
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func compilePatterns(req Request) ([]substr.Pattern, error) {
	return substr.Compile(req.Kout, req.Substring, req.ReverseComplement)
}

func (e *Engine) shardRange(shardIdx int) (uint64, uint64, error) {
	if shardIdx < 0 || shardIdx >= len(e.Index.Shards) {
		return 0, 0, errors.Wrapf(kerr.ErrBadIndex, "shard index %d out of range", shardIdx)
	}
	sh := e.Index.Shards[shardIdx]
	return sh.Start, sh.End, nil
}
