package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/speciesdex/internal/adapters/auth"
	"github.com/okian/speciesdex/internal/adapters/dataservice"
	"github.com/okian/speciesdex/internal/adapters/http/api"
	"github.com/okian/speciesdex/internal/adapters/http/site"
	"github.com/okian/speciesdex/internal/adapters/http/swagger"
	"github.com/okian/speciesdex/internal/adapters/watch"
	app "github.com/okian/speciesdex/internal/app"
	"github.com/okian/speciesdex/internal/config"
	"github.com/okian/speciesdex/internal/domain/species"
	"github.com/okian/speciesdex/internal/ingest"
	"github.com/okian/speciesdex/pkg/logger"
	"github.com/okian/speciesdex/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// The metrics package serves its own registry; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since the logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "speciesdex stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the components and blocks until ctx is done or one of them
// fails.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}

	store, closeStore, err := buildStore(ctx, cfg, httpClient, log)
	if err != nil {
		return err
	}
	defer closeStore()

	resolver, authClient, err := buildAuth(cfg, httpClient, log)
	if err != nil {
		return err
	}

	source := ingest.NewSource(cfg.CSVLocation, httpClient)
	svc := app.New(
		app.WithLogger(log),
		app.WithLoader(ingest.NewLoader(source, log)),
		app.WithStore(store),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	handler, err := buildHandler(ctx, cfg, svc, resolver, authClient, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var watcher *watch.FileWatcher
	if fs, ok := source.(ingest.FileSource); ok && cfg.WatchCSV {
		if watcher, err = watch.New(fs.Path, svc, watch.WithLogger(log)); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// buildStore selects the species backend.
func buildStore(ctx context.Context, cfg *config.Config, httpClient *http.Client, log logger.Logger) (dataservice.Store, func(), error) {
	switch cfg.DataBackend {
	case config.BackendSQLite:
		st, err := dataservice.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DevUserID != "" {
			if err := seedSpecies(ctx, st, cfg.DevUserID); err != nil {
				_ = st.Close()
				return nil, nil, err
			}
		}
		log.Info(ctx, "using sqlite species store", logger.String("path", cfg.SQLitePath))
		return st, func() { _ = st.Close() }, nil
	default:
		c, err := dataservice.NewRESTClient(cfg.DataURL, cfg.DataAnonKey,
			dataservice.WithHTTPClient(httpClient),
			dataservice.WithTimeout(cfg.RequestTimeout()),
			dataservice.WithRateLimit(cfg.DataRateLimitRPS),
			dataservice.WithLogger(log),
		)
		if err != nil {
			return nil, nil, err
		}
		log.Info(ctx, "using hosted species store", logger.String("url", cfg.DataURL))
		return c, func() {}, nil
	}
}

// buildAuth returns the hosted auth client when data_url is set and a
// static resolver for dev_user_id otherwise.
func buildAuth(cfg *config.Config, httpClient *http.Client, log logger.Logger) (auth.Resolver, *auth.Client, error) {
	if !cfg.AuthEnabled() {
		return auth.StaticResolver{UserID: cfg.DevUserID}, nil, nil
	}
	c, err := auth.NewClient(cfg.DataURL, cfg.DataAnonKey, httpClient, log)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewSessionResolver(c, auth.CookieStore{Secure: cfg.CookieSecure}), c, nil
}

func buildHandler(ctx context.Context, cfg *config.Config, svc *app.Service, resolver auth.Resolver, authClient *auth.Client, log logger.Logger) (http.Handler, error) {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, resolver).Register(ctx, mux)

	opts := []site.Option{
		site.WithResolver(resolver),
		site.WithCookies(auth.CookieStore{Secure: cfg.CookieSecure}),
		site.WithLogger(log),
	}
	if authClient != nil {
		opts = append(opts, site.WithAuth(authClient, cfg.AuthProvider, cfg.SiteURL))
	}
	pages, err := site.New(svc, opts...)
	if err != nil {
		return nil, err
	}
	pages.Register(ctx, mux)

	return api.RequestID(mux, log), nil
}

// seedSpecies gives an empty local database a couple of rows to edit.
func seedSpecies(ctx context.Context, st *dataservice.SQLiteStore, author string) error {
	existing, err := st.List(ctx, dataservice.Caller{})
	if err != nil || len(existing) > 0 {
		return err
	}
	for _, sp := range []species.Species{
		{
			CommonName:      species.Ptr("Snow leopard"),
			ScientificName:  species.Ptr("Panthera uncia"),
			Kingdom:         species.Ptr("Animalia"),
			TotalPopulation: species.Ptr(int64(4000)),
			Description:     species.Ptr("A large cat native to the mountain ranges of Central and South Asia."),
			Author:          species.Ptr(author),
		},
		{
			CommonName:     species.Ptr("Giant sequoia"),
			ScientificName: species.Ptr("Sequoiadendron giganteum"),
			Kingdom:        species.Ptr("Plantae"),
			Author:         species.Ptr(author),
		},
	} {
		if _, err := st.Insert(ctx, sp); err != nil {
			return err
		}
	}
	return nil
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level gauges from GetStats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if n, ok := stats["datasetSize"].(int); ok {
		metrics.UpdateDatasetSize(n)
	}
}
