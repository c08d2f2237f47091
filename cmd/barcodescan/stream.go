package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	bconfig "github.com/kmerbase/barcodescan/config"
	"github.com/kmerbase/barcodescan/gchist"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/kmerbase/barcodescan/kmer"
	"github.com/kmerbase/barcodescan/shardindex"
	"github.com/kmerbase/barcodescan/window"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// StreamCommand is the `barcodescan stream` subcommand: windowed
// multi-shard streaming search with k-mer expansion and pagination.
type StreamCommand struct {
	ShardsDir         string
	GCHistPath        string
	Substring         string
	ReverseComplement bool
	GCMinPct          int
	GCMaxPct          int
	Limit             int
	Threads           int
	ConstructK        int
	Window            int
	Burst             int
	RefillChunk       int
	Cursor            string
	RandomAccess      bool
	RASeed            uint64
	Verbose           bool
	ConfigFile        string
	LogFile           string
}

// NewStreamCommand builds the cobra command for windowed streaming search.
func NewStreamCommand() *cobra.Command {
	cmd := &StreamCommand{}
	cc := &cobra.Command{
		Use:   "stream",
		Short: "Windowed multi-shard streaming search with k-mer expansion and a resumable cursor.",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.run(c.Context(), c.Flags())
		},
	}

	flags := cc.Flags()
	flags.StringVar(&cmd.ShardsDir, "shards", "", "Shard directory containing index.json and *.kbit files.")
	flags.StringVar(&cmd.GCHistPath, "gc-hist", "", "GC histogram JSON path.")
	flags.StringVar(&cmd.Substring, "substring", "", "Required ACGT substring filter (disabled when empty).")
	flags.BoolVar(&cmd.ReverseComplement, "reverse_complement", false, "Also match the substring's reverse complement.")
	flags.IntVar(&cmd.GCMinPct, "gc-min", 0, "Minimum GC percent (inclusive).")
	flags.IntVar(&cmd.GCMaxPct, "gc-max", 100, "Maximum GC percent (inclusive).")
	flags.IntVar(&cmd.Limit, "limit", 100, "Maximum results per page.")
	flags.IntVar(&cmd.Threads, "threads", 4, "Parallel lane-refill worker count.")
	flags.IntVar(&cmd.ConstructK, "construct_k", 0, "Output k-mer length (0 = same as the shard base k).")
	flags.IntVar(&cmd.Window, "window", 4, "Number of concurrent scan lanes.")
	flags.IntVar(&cmd.Burst, "burst", 32, "Values emitted per lane per drain round.")
	flags.IntVar(&cmd.RefillChunk, "refill_chunk", 256, "Values buffered per lane per refill.")
	flags.StringVar(&cmd.Cursor, "cursor", "", "Resume cursor from a prior page (BCW2 token).")
	flags.BoolVar(&cmd.RandomAccess, "random_access", false, "Scan shards in a seeded pseudo-random permutation instead of index order.")
	flags.Uint64Var(&cmd.RASeed, "ra_seed", 0, "Random-access permutation seed (0 is treated as 1).")
	flags.BoolVar(&cmd.Verbose, "verbose", false, "Print a [stats] table and debug logging to stderr.")
	flags.StringVar(&cmd.ConfigFile, "config", "", "Optional TOML/YAML/JSON config file.")
	flags.StringVar(&cmd.LogFile, "log-file", "", "Also append log output to this file (reopenable via SIGHUP-style rotation).")

	return cc
}

func (cmd *StreamCommand) run(ctx context.Context, flags *pflag.FlagSet) error {
	v, err := bconfig.New(flags, cmd.ConfigFile)
	if err != nil {
		return err
	}
	scfg, err := bconfig.LoadStream(v)
	if err != nil {
		return err
	}

	log, logCloser, err := setupLogger(cmd.LogFile, scfg.Verbose)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	idx, err := shardindex.Load(scfg.ShardsDir)
	if err != nil {
		return err
	}

	k0 := idx.K
	kout := scfg.ConstructK
	if kout <= 0 {
		kout = k0
	}
	if kout < k0 {
		return errors.Wrapf(kerr.ErrConfigConflict, "construct_k (%d) must be >= base k (%d)", kout, k0)
	}

	hist, err := gchist.Load(scfg.GCHistPath, k0)
	if err != nil {
		return err
	}

	eng := window.NewEngine(idx, hist)
	eng.Log = log

	req := window.Request{
		K0: k0, Kout: kout,
		GCMinPct: scfg.GCMinPct, GCMaxPct: scfg.GCMaxPct,
		Substring: scfg.Substring, ReverseComplement: scfg.ReverseComplement,
		Limit: scfg.Limit, Window: scfg.Window, Burst: scfg.Burst,
		RefillChunk: scfg.RefillChunk, Threads: scfg.Threads,
		RandomAccess: scfg.RandomAccess, Seed: scfg.RASeed,
		Cursor: scfg.Cursor,
	}

	t0 := time.Now()
	res, err := eng.Run(ctx, req)
	elapsed := time.Since(t0)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(os.Stdout)
	hasMoreFlag := "0"
	if res.HasMore {
		hasMoreFlag = "1"
	}
	fmt.Fprintf(w, "__META__\t%s\t%s\t%d\t%d\n", res.Cursor, hasMoreFlag, len(res.Values), kout)
	for _, v := range res.Values {
		fmt.Fprintln(w, kmer.Decode(v, kout))
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(kerr.ErrShardIo, err.Error())
	}

	if scfg.Verbose {
		printStats(os.Stderr, statsInfo{
			ShardsDir: scfg.ShardsDir, GCHist: scfg.GCHistPath, Threads: scfg.Threads,
			Limit: scfg.Limit, Window: scfg.Window, Burst: scfg.Burst, RefillChunk: scfg.RefillChunk,
			K0: k0, Kout: kout, RandomAccess: scfg.RandomAccess, Seed: req.Seed,
			GCMinPct: scfg.GCMinPct, GCMaxPct: scfg.GCMaxPct, Substring: scfg.Substring,
			ReverseComplement: scfg.ReverseComplement, Returned: len(res.Values), HasMore: res.HasMore,
			NextCursor: res.Cursor, ShardsLoaded: res.ShardsHit, ScanTime: elapsed,
		})
	}
	return nil
}
