package main

import (
	"github.com/spf13/cobra"
)

var rootFlags = struct {
	home string
}{}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "curvance",
		Short:         "Curvance protocol node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&rootFlags.home, "home", ".", "path to the node home directory")

	cmd.AddCommand(
		newInitCmd(),
		newRunCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
