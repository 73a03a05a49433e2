package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// overridden at build time through ldflags
var (
	cliVersion     = "0.1.0+dev"
	cliVersionHash = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of the node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "curvance %s (%s)\n", cliVersion, cliVersionHash)
			return nil
		},
	}
}
