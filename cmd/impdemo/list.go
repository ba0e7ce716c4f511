package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martinjungblut/imp/internal/scenario"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, s := range scenario.All {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-14s %s\n", s.Name, s.Description)
			}
		},
	}
}
