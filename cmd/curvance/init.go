package main

import (
	"fmt"

	"code.curvance.io/curvance/config"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file to the home directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Write(rootFlags.home, config.NewDefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", rootFlags.home)
			return nil
		},
	}
}
