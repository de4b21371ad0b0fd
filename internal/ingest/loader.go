package ingest

import (
	"context"

	"github.com/okian/speciesdex/pkg/logger"
)

// Loader runs a full fetch, parse and normalize pass over a Source.
type Loader struct {
	source Source
	logger logger.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(source Source, l logger.Logger) *Loader {
	if l == nil {
		l = logger.NewNop()
	}
	return &Loader{source: source, logger: l.Named("ingest")}
}

// Source returns the underlying source.
func (l *Loader) Source() Source { return l.source }

// Load fetches and normalizes the document. Fetch and parse failures are
// returned; rejected rows are only counted.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	rc, err := l.source.Open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = rc.Close() }()

	rows, err := Parse(rc)
	if err != nil {
		return Result{}, err
	}

	res := Normalize(rows)
	if len(res.Records) == 0 {
		l.logger.Warn(ctx, "csv loaded but no valid rows",
			logger.String("location", l.source.Location()),
			logger.Int("rows", res.Total),
		)
		return res, nil
	}
	l.logger.Info(ctx, "csv loaded",
		logger.String("location", l.source.Location()),
		logger.Int("accepted", len(res.Records)),
		logger.Int("dropped", res.Dropped),
	)
	return res, nil
}
