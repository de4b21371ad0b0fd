package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/okian/speciesdex/internal/chart"
)

func newRankCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "rank <csv>",
		Short: "Print the fastest animals as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(cmd.Context(), args[0], top, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rankTable(ds))
			return err
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", chart.TopN, "number of animals to list")
	return cmd
}

func rankTable(ds chart.Dataset) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	tbl.AppendHeader(table.Row{"#", "Animal", "Speed (km/h)", "Diet"})
	for i, r := range ds {
		tbl.AppendRow(table.Row{humanize.Ordinal(i + 1), r.Name, fmt.Sprintf("%.1f", r.Speed), r.Diet.Label()})
	}
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d animals", len(ds))})
	return tbl.Render()
}
