package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fboiero/MIESC-sub012/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
