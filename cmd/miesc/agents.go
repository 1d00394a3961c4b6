package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fboiero/MIESC-sub012/internal/registry"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the registered analysis agents",
	RunE:  runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	reg, err := registry.LoadFile(cfg.Core.RegistryPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLAYER\tWEIGHT\tOUTPUT TOPIC")
	for _, d := range reg.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
			d.ID, d.Name, d.Layer, d.ReliabilityWeight, d.OutputTopic)
	}
	return w.Flush()
}
