package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/shotchart/internal/adapters/cache"
	"github.com/okian/shotchart/internal/adapters/http/api"
	"github.com/okian/shotchart/internal/adapters/http/site"
	"github.com/okian/shotchart/internal/adapters/http/swagger"
	"github.com/okian/shotchart/internal/adapters/source"
	service "github.com/okian/shotchart/internal/app"
	"github.com/okian/shotchart/internal/config"
	"github.com/okian/shotchart/internal/domain/chartspec"
	"github.com/okian/shotchart/pkg/logger"
	"github.com/okian/shotchart/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	startupTimeout        = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stderr, cfg.LogFormat); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "shotchart failed", logger.Error(err))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, cleanup, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	err = svc.Start(startCtx)
	cancel()
	if err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, cfg, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires the configured source, cache and chart options into a
// Service. The returned cleanup releases database and Redis connections.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	configured, err := source.FromConfig(cfg, log.Named("source"))
	if err != nil {
		return nil, cleanup, fmt.Errorf("configure source: %w", err)
	}
	if sqlSrc, ok := configured.(*source.SQLSource); ok {
		closers = append(closers, func() { _ = sqlSrc.Close() })
		if err := sqlSrc.Ping(ctx); err != nil {
			// Charts stay empty until the database comes back.
			log.Warn(ctx, "shot database unreachable", logger.Error(err))
		}
	}

	loader := source.NewLoader(
		source.WithDataRoot(cfg.DataRoot),
		source.WithConfigured(configured),
		source.WithSyntheticFallback(cfg.SyntheticFallback),
		source.WithDefaultRowLimit(cfg.RowLimit),
		source.WithLogger(log.Named("source")),
	)

	opts := []service.Option{
		service.WithLoader(loader),
		service.WithLogger(log.Named("service")),
		service.WithChartOptions(chartspec.WithSize(cfg.ChartWidth, cfg.ChartHeight)),
		service.WithWarmup(cfg.WarmSeasons, cfg.WarmWorkers),
	}

	c, backend, closeCache := buildCache(ctx, cfg, log)
	if c != nil {
		closers = append(closers, closeCache)
		opts = append(opts, service.WithCache(c, backend))
	}
	return service.New(opts...), cleanup, nil
}

// buildCache picks Redis when an address is configured and reachable,
// otherwise the in-memory cache. A zero cache size disables the latter.
func buildCache(ctx context.Context, cfg *config.Config, log logger.Logger) (cache.Cache, string, func()) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rc := cache.NewRedis(client,
			cache.WithTTL(cfg.CacheTTL()),
			cache.WithRedisLogger(log.Named("cache")))
		err := rc.Ping(ctx)
		if err == nil {
			log.Info(ctx, "using redis spec cache", logger.String("addr", cfg.RedisAddr))
			return rc, cache.BackendRedis, func() { _ = client.Close() }
		}
		_ = client.Close()
		log.Warn(ctx, "redis unreachable; using in-memory spec cache",
			logger.String("addr", cfg.RedisAddr), logger.Error(err))
	}
	if cfg.CacheSize == 0 {
		return nil, "", func() {}
	}
	return cache.NewMemory(cache.WithMaxEntries(cfg.CacheSize)), cache.BackendMemory, func() {}
}

// newMux registers every route: API, docs and the chart pages.
func newMux(ctx context.Context, svc *service.Service, cfg *config.Config, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithPlaySpeed(cfg.PlaySpeed()),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
