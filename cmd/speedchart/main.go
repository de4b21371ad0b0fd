// Package main provides speedchart, an offline renderer for the animal
// speed dataset.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var noColor bool

	root := &cobra.Command{
		Use:   "speedchart",
		Short: "Render and rank the animal speed dataset",
		Long: `speedchart reads an animal speed CSV (file path or http(s) URL) and
renders the same chart the site serves, or prints the ranking as a table.

Commands:
  render    Write the chart as SVG or interactive HTML
  rank      Print the top animals by speed`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor {
				disableColor()
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(newRenderCommand())
	root.AddCommand(newRankCommand())
	return root
}
