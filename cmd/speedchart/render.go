package main

import (
	"bytes"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/speciesdex/internal/chart"
)

const (
	renderDefaultWidth = 960
	renderFilePerm     = 0o644
)

// ErrNoOutput is returned when neither --output nor --stdout is given.
var ErrNoOutput = errors.New("output file is required (use --output or --stdout)")

func newRenderCommand() *cobra.Command {
	var (
		output      string
		toStdout    bool
		width       int
		top         int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "render <csv>",
		Short: "Render the speed chart",
		Long: `Render the speed chart for a CSV file or URL.

Examples:
  speedchart render static/sample_animals.csv -o speed.svg
  speedchart render --interactive -o speed.html https://example.com/animals.csv
  speedchart render --stdout --width 600 animals.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" && !toStdout {
				return ErrNoOutput
			}
			ds, err := loadDataset(cmd.Context(), args[0], top, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if interactive {
				err = chart.RenderInteractive(&buf, ds)
			} else {
				err = chart.Render(&buf, ds, width)
			}
			if err != nil {
				return err
			}

			if toStdout {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			return os.WriteFile(output, buf.Bytes(), renderFilePerm)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().IntVarP(&width, "width", "w", renderDefaultWidth, "container width in pixels")
	cmd.Flags().IntVarP(&top, "top", "n", chart.TopN, "number of animals to chart")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "write an interactive HTML page instead of SVG")
	return cmd
}
