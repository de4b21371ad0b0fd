// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the site pages.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/speciesdex/internal/adapters/dataservice"
	reloadqueue "github.com/okian/speciesdex/internal/adapters/mq/queue"
	"github.com/okian/speciesdex/internal/adapters/mq/worker"
	"github.com/okian/speciesdex/internal/chart"
	"github.com/okian/speciesdex/internal/domain/species"
	"github.com/okian/speciesdex/internal/domain/submit"
	"github.com/okian/speciesdex/internal/ingest"
	"github.com/okian/speciesdex/pkg/logger"
	"github.com/okian/speciesdex/pkg/metrics"
)

// Snapshot is one loaded version of the speed dataset. It is never mutated
// after it is published.
type Snapshot struct {
	Records  chart.Dataset `json:"records"`
	Total    int           `json:"total"`
	Accepted int           `json:"accepted"`
	Dropped  int           `json:"dropped"`
	Source   string        `json:"source"`
	LoadedAt time.Time     `json:"loaded_at"`
}

// UpdateResult is the outcome of a validated edit.
type UpdateResult struct {
	// FieldErrors is set when the form did not validate; nothing was sent.
	FieldErrors species.FieldErrors
	// Species is the merged record after a successful update.
	Species species.Species
}

// Service implements the API dependencies for the species catalog.
type Service struct {
	mu sync.RWMutex

	// Core components
	loader *ingest.Loader
	store  dataservice.Store
	guard  submit.Guard
	queue  *reloadqueue.InMemoryQueue
	worker *worker.ReloadWorker

	// Configuration
	topN          int
	queueCapacity int

	// State
	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	started  bool
	stopped  atomic.Bool
	cancel   context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLoader sets the dataset loader.
func WithLoader(l *ingest.Loader) Option {
	return func(s *Service) {
		s.loader = l
	}
}

// WithStore sets the species store.
func WithStore(st dataservice.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithGuard replaces the double-submit guard.
func WithGuard(g submit.Guard) Option {
	return func(s *Service) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithTopN sets how many records the chart shows.
func WithTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithQueueCapacity sets how many reload requests may wait.
func WithQueueCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueCapacity = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		topN:          chart.TopN,
		queueCapacity: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = submit.NewGuard()
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.Named("service")
	s.snapshot.Store(&Snapshot{})
	return s
}

// Start launches the reload worker and requests the initial load.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.loader == nil {
		return fmt.Errorf("%w: no dataset loader configured", ErrNotStarted)
	}

	s.logger.Info(ctx, "starting species service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = reloadqueue.NewInMemoryQueue(reloadqueue.WithCapacity(s.queueCapacity))
	s.worker = worker.NewReloadWorker(s.queue, s, worker.WithLogger(s.logger))
	go s.worker.Run(runCtx)

	s.stopped.Store(false)
	s.started = true
	s.queue.Enqueue(ctx, reloadqueue.Request{Reason: "startup"})

	s.logger.Info(ctx, "species service started",
		logger.String("source", s.loader.Source().Location()),
		logger.Int("topN", s.topN),
	)
	return nil
}

// Stop shuts the worker down. A reload still in flight finishes but its
// result is discarded.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping species service...")

	s.stopped.Store(true)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "reload worker did not stop in time", logger.Error(err))
	}
	s.cancel()
	_ = s.queue.Close()

	s.started = false
	s.logger.Info(ctx, "species service stopped")
}

// RequestReload asks the worker for a fresh ingestion. Requests arriving
// while one is already pending are coalesced; false means dropped.
func (s *Service) RequestReload(ctx context.Context, reason string) bool {
	return s.Enqueue(ctx, reloadqueue.Request{Reason: reason})
}

// Enqueue passes r to the reload queue. It lets the file watcher feed the
// service directly.
func (s *Service) Enqueue(ctx context.Context, r reloadqueue.Request) bool {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return false
	}
	return q.Enqueue(ctx, r)
}

// Reload fetches, parses, normalizes and ranks the CSV, then publishes the
// result. Failed loads keep the previous snapshot.
func (s *Service) Reload(ctx context.Context) error {
	if s.loader == nil {
		return fmt.Errorf("%w: no dataset loader configured", ErrIngest)
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	res, err := s.loader.Load(ctx)
	metrics.RecordIngestDuration(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordIngestRun("error")
		s.logger.Error(ctx, "dataset load failed",
			logger.String("source", s.loader.Source().Location()),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrIngest, err)
	}
	if s.stopped.Load() {
		metrics.RecordIngestRun("discarded")
		return ErrStopped
	}

	snap := &Snapshot{
		Records:  chart.Rank(res.Records, s.topN),
		Total:    res.Total,
		Accepted: len(res.Records),
		Dropped:  res.Dropped,
		Source:   s.loader.Source().Location(),
		LoadedAt: time.Now().UTC(),
	}
	s.snapshot.Store(snap)

	metrics.RecordIngestRun("ok")
	metrics.RecordIngestRows(snap.Accepted, snap.Dropped)
	metrics.UpdateDatasetSize(len(snap.Records))
	if snap.Dropped > 0 {
		s.logger.Warn(ctx, "rows dropped during ingestion",
			logger.Int("dropped", snap.Dropped),
			logger.Int("total", snap.Total),
		)
	}
	return nil
}

// Snapshot returns the current dataset. It is empty before the first load.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Dataset returns the ranked records of the current snapshot.
func (s *Service) Dataset() chart.Dataset {
	return s.snapshot.Load().Records
}

// RenderChart draws the static SVG chart for a container of width pixels.
func (s *Service) RenderChart(w io.Writer, width int) error {
	start := time.Now()
	err := chart.Render(w, s.Dataset(), width)
	metrics.RecordChartRender("svg", float64(time.Since(start).Microseconds())/1000)
	return err
}

// RenderInteractive writes the interactive chart page.
func (s *Service) RenderInteractive(w io.Writer) error {
	start := time.Now()
	err := chart.RenderInteractive(w, s.Dataset())
	metrics.RecordChartRender("interactive", float64(time.Since(start).Microseconds())/1000)
	return err
}

// ListSpecies returns every species visible to caller.
func (s *Service) ListSpecies(ctx context.Context, caller dataservice.Caller) ([]species.Species, error) {
	if s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store.List(ctx, caller)
}

// GetSpecies returns one species.
func (s *Service) GetSpecies(ctx context.Context, caller dataservice.Caller, id species.ID) (*species.Species, error) {
	if s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store.Get(ctx, caller, id)
}

// UpdateSpecies validates form and sends it to the store. Validation
// problems come back as FieldErrors with a nil error. Any other failure is an
// *UpdateError whose message is meant for the user; current is untouched in
// that case.
func (s *Service) UpdateSpecies(ctx context.Context, caller dataservice.Caller, current species.Species, form species.EditForm) (UpdateResult, error) {
	if s.store == nil {
		return UpdateResult{}, ErrNotStarted
	}

	patch, fieldErrs := form.Validate()
	if len(fieldErrs) > 0 {
		metrics.RecordSpeciesUpdate("invalid")
		return UpdateResult{FieldErrors: fieldErrs}, nil
	}

	if form.Token != "" && s.guard.Begin(ctx, form.Token) {
		metrics.RecordSpeciesUpdate("duplicate")
		return UpdateResult{}, &UpdateError{Kind: ErrDuplicateSubmission, Message: MsgDuplicateSubmit}
	}
	release := func() {
		if form.Token != "" {
			s.guard.Release(ctx, form.Token)
		}
	}

	row, err := s.store.Update(ctx, caller, current.ID, patch)
	switch {
	case err != nil:
		release()
		if errors.Is(err, dataservice.ErrRequest) {
			metrics.RecordSpeciesUpdate("error")
			s.logger.Warn(ctx, "species update rejected",
				logger.String("id", current.ID.String()),
				logger.Error(err),
			)
			return UpdateResult{}, &UpdateError{
				Kind:    ErrUpdateFailed,
				Message: MsgUpdateFailedPrefix + dataservice.UserMessage(err),
				Cause:   err,
			}
		}
		metrics.RecordSpeciesUpdate("unexpected")
		s.logger.Error(ctx, "species update failed",
			logger.String("id", current.ID.String()),
			logger.Error(err),
		)
		return UpdateResult{}, &UpdateError{Kind: ErrUnexpectedUpdate, Message: MsgUnexpectedUpdate, Cause: err}
	case row == nil:
		release()
		metrics.RecordSpeciesUpdate("no_row")
		s.logger.Info(ctx, "species update matched no row",
			logger.String("id", current.ID.String()),
			logger.String("user", caller.UserID),
		)
		return UpdateResult{}, &UpdateError{Kind: ErrNoRowReturned, Message: MsgNoRowReturned}
	}

	metrics.RecordSpeciesUpdate("ok")
	return UpdateResult{Species: current.Merge(*row)}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot.Load()
	stats := map[string]interface{}{
		"started":         s.started,
		"topN":            s.topN,
		"datasetSize":     len(snap.Records),
		"rowsTotal":       snap.Total,
		"rowsAccepted":    snap.Accepted,
		"rowsDropped":     snap.Dropped,
		"submitGuardSize": s.guard.Size(),
	}
	if !snap.LoadedAt.IsZero() {
		stats["loadedAt"] = snap.LoadedAt.Format(time.RFC3339)
	}
	if s.started {
		n := s.queue.Len(context.Background())
		stats["reloadQueueLength"] = n
		metrics.UpdateReloadQueueSize(n)
	}
	return stats
}
