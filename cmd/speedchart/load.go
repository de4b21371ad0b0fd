package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fatih/color"

	"github.com/okian/speciesdex/internal/chart"
	"github.com/okian/speciesdex/internal/ingest"
	"github.com/okian/speciesdex/pkg/logger"
)

const fetchTimeout = 30 * time.Second

var warn = color.New(color.FgYellow)

func disableColor() {
	color.NoColor = true //nolint:reassign // library global
}

// loadDataset reads location and ranks the accepted rows. Dropped rows are
// reported on errOut.
func loadDataset(ctx context.Context, location string, top int, errOut io.Writer) (chart.Dataset, error) {
	src := ingest.NewSource(location, &http.Client{Timeout: fetchTimeout})
	res, err := ingest.NewLoader(src, logger.NewNop()).Load(ctx)
	if err != nil {
		return nil, err
	}
	if res.Dropped > 0 {
		_, _ = warn.Fprintf(errOut, "warning: dropped %d of %d rows from %s\n", res.Dropped, res.Total, location)
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%s: %w", location, chart.ErrEmptyDataset)
	}
	return chart.Rank(res.Records, top), nil
}
