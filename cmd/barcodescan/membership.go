package main

import (
	"bufio"
	"context"
	"fmt"

	bconfig "github.com/kmerbase/barcodescan/config"
	"github.com/kmerbase/barcodescan/kbit"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/kmerbase/barcodescan/membership"
	"github.com/kmerbase/barcodescan/shardindex"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// MembershipCommand is the `barcodescan membership` subcommand: it
// binds its own flags, then resolves the effective configuration
// (flags > config file > defaults) at Run time.
type MembershipCommand struct {
	ShardsDir  string
	Bitmap     string
	K          int
	KmersFile  string
	OutFile    string
	Threads    int
	Verbose    bool
	ConfigFile string
	LogFile    string
}

// NewMembershipCommand builds the cobra command for membership queries.
func NewMembershipCommand() *cobra.Command {
	cmd := &MembershipCommand{}
	cc := &cobra.Command{
		Use:   "membership",
		Short: "Query membership of k-mers against a sharded (or single-file) KBITv1 bitmap.",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.run(c.Context(), c.Flags())
		},
	}

	flags := cc.Flags()
	flags.StringVar(&cmd.ShardsDir, "shards", "", "Shard directory containing index.json and *.kbit files.")
	flags.StringVar(&cmd.Bitmap, "bitmap", "", "Legacy single KBITv1 bitmap file (mutually exclusive with --shards).")
	flags.IntVar(&cmd.K, "k", 18, "k-mer length (16, 17, or 18).")
	flags.StringVar(&cmd.KmersFile, "kmers", "", "File of newline-separated k-mers to query (default: stdin).")
	flags.StringVar(&cmd.OutFile, "out", "", "Output file for results (default: stdout).")
	flags.IntVar(&cmd.Threads, "threads", 4, "Parallel shard-load worker count.")
	flags.BoolVar(&cmd.Verbose, "verbose", false, "Enable debug logging on stderr.")
	flags.StringVar(&cmd.ConfigFile, "config", "", "Optional TOML/YAML/JSON config file.")
	flags.StringVar(&cmd.LogFile, "log-file", "", "Also append log output to this file (reopenable via SIGHUP-style rotation).")

	return cc
}

func (cmd *MembershipCommand) run(ctx context.Context, flags *pflag.FlagSet) error {
	v, err := bconfig.New(flags, cmd.ConfigFile)
	if err != nil {
		return err
	}
	mcfg, err := bconfig.LoadMembership(v)
	if err != nil {
		return err
	}

	log, logCloser, err := setupLogger(cmd.LogFile, mcfg.Verbose)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	in, err := openInput(mcfg.KmersFile)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openOutput(mcfg.OutFile)
	if err != nil {
		return err
	}
	defer out.Close()

	kmers, err := readLines(in)
	if err != nil {
		return err
	}

	var results []membership.Result
	if mcfg.Bitmap != "" {
		sh, err := kbit.ReadFile(mcfg.Bitmap)
		if err != nil {
			return err
		}
		results, err = membership.QuerySingleFile(sh, mcfg.K, kmers)
		if err != nil {
			return err
		}
	} else {
		idx, err := shardindex.Load(mcfg.ShardsDir)
		if err != nil {
			return err
		}
		if idx.K != mcfg.K {
			return errors.Wrapf(kerr.ErrBadInput, "shard index k=%d does not match requested k=%d", idx.K, mcfg.K)
		}
		eng := membership.NewEngine(idx)
		eng.Threads = mcfg.Threads
		eng.Log = log
		results, err = eng.Query(ctx, kmers)
		if err != nil {
			return err
		}
	}

	w := bufio.NewWriter(out)
	for _, r := range results {
		bit := "0"
		if r.Present {
			bit = "1"
		}
		fmt.Fprintf(w, "%s\t%s\n", r.Kmer, bit)
	}
	return w.Flush()
}

