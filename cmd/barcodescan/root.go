package main

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the barcodescan root command with its two
// query subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "barcodescan",
		Short:         "Query a sharded DNA k-mer barcode bitmap index.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(NewMembershipCommand())
	root.AddCommand(NewStreamCommand())
	return root
}
