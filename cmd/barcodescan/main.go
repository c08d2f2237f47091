// Command barcodescan queries a sharded DNA k-mer barcode bitmap index:
// membership lookups against KBITv1 shards, and windowed multi-shard
// streaming search with cursor-based pagination.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kmerbase/barcodescan/kerr"
)

// run executes the root command with args and returns the process exit
// code, writing any error to stderr. Split out from main so it can be
// exercised without calling os.Exit.
func run(args []string, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		kind, _ := kerr.Classify(err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return kind.ExitCode()
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}
