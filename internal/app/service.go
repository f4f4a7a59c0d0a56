// Package service wires the shot chart pipeline: resolve a source, load and
// number the shots, build the chart spec and cache the result.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/shotchart/internal/adapters/cache"
	"github.com/okian/shotchart/internal/adapters/mq/queue"
	"github.com/okian/shotchart/internal/adapters/mq/worker"
	"github.com/okian/shotchart/internal/adapters/source"
	"github.com/okian/shotchart/internal/domain/chartspec"
	"github.com/okian/shotchart/internal/domain/court"
	"github.com/okian/shotchart/internal/domain/shot"
	"github.com/okian/shotchart/pkg/logger"
	"github.com/okian/shotchart/pkg/metrics"
)

const warmShutdownTimeout = 5 * time.Second

// Loader resolves and reads shot tables.
type Loader interface {
	Resolve(ctx context.Context, q source.Query) (source.Source, source.Query, error)
	LoadFrom(ctx context.Context, src source.Source, q source.Query) shot.Table
}

// Result is one built chart.
type Result struct {
	Spec     chartspec.Spec
	Origin   source.Origin
	SourceID string
	Cached   bool
}

// Service builds chart specs on request.
type Service struct {
	mu sync.RWMutex

	loader       Loader
	cache        cache.Cache
	cacheBackend string
	chartOpts    []chartspec.Option

	warmSeasons []string
	warmWorkers int
	warmPool    *worker.Pool
	warmCancel  context.CancelFunc

	// State
	started    bool
	lastOrigin source.Origin
	lastRows   int
	builds     atomic.Int64
	hits       atomic.Int64
	misses     atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLoader sets the dataset loader.
func WithLoader(l Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithCache enables spec caching. backend labels cache metrics.
func WithCache(c cache.Cache, backend string) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheBackend = backend
	}
}

// WithChartOptions sets presentation options applied to every chart.
func WithChartOptions(opts ...chartspec.Option) Option {
	return func(s *Service) {
		s.chartOpts = append(s.chartOpts, opts...)
	}
}

// WithWarmup builds the chart of each season in the background after Start,
// using the given number of workers.
func WithWarmup(seasons []string, workers int) Option {
	return func(s *Service) {
		s.warmSeasons = append(s.warmSeasons[:0], seasons...)
		s.warmWorkers = workers
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

// New constructs a Service. Without options it serves the synthetic sample
// and caches nothing.
func New(opts ...Option) *Service {
	s := &Service{
		loader: source.NewLoader(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start warms the cache with the default chart so the first page load does
// not pay for reading the configured dataset. Configured warm-up seasons are
// built in the background.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	res, err := s.Chart(ctx, source.Query{})
	if err != nil {
		return fmt.Errorf("service.start: %w", err)
	}
	s.logger.Info(ctx, "shot chart service started",
		logger.String("source", res.SourceID),
		logger.String("origin", string(res.Origin)),
		logger.Int("players", len(res.Spec.Player.Options)),
		logger.Int("slider_max", res.Spec.SliderMax))

	if len(s.warmSeasons) > 0 {
		s.startWarmup(ctx)
	}
	return nil
}

// startWarmup queues one job per season and closes the queue, so the pool
// winds down on its own once every chart is built.
func (s *Service) startWarmup(ctx context.Context) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(s.warmSeasons)))
	for _, season := range s.warmSeasons {
		if !q.Enqueue(ctx, queue.Job{Season: season}) {
			s.logger.Warn(ctx, "warm-up job dropped", logger.String("season", season))
		}
	}
	_ = q.Close()

	// The pool outlives the Start context, which callers usually bound.
	warmCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pool := worker.NewPool(s.warmWorkers, q, s, worker.WithLogger(s.logger.Named("warmup")))
	pool.Start(warmCtx)

	s.mu.Lock()
	s.warmPool = pool
	s.warmCancel = cancel
	s.mu.Unlock()

	s.logger.Info(ctx, "chart warm-up started",
		logger.Int("seasons", len(s.warmSeasons)),
		logger.Int("workers", pool.Size()))
}

// Warm builds and caches the chart for j.
func (s *Service) Warm(ctx context.Context, j queue.Job) error {
	_, err := s.Chart(ctx, j)
	return err
}

// Stop marks the service stopped. Pending warm-up jobs get a short grace
// period before in-flight builds are cancelled.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, cancel := s.warmPool, s.warmCancel
	s.warmCancel = nil
	s.mu.Unlock()

	ctx := context.Background()
	if pool != nil && cancel != nil {
		waitCtx, stop := context.WithTimeout(ctx, warmShutdownTimeout)
		err := pool.Wait(waitCtx)
		stop()
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "warm-up interrupted", logger.Error(err))
			shutdownCtx, stop := context.WithTimeout(ctx, time.Second)
			_ = pool.Shutdown(shutdownCtx)
			stop()
		}
	}
	s.logger.Info(ctx, "shot chart service stopped")
}

// Chart returns the chart spec for q, from cache when possible. Errors are
// limited to invalid or unreachable dataset overrides.
func (s *Service) Chart(ctx context.Context, q source.Query) (Result, error) {
	const op = "service.chart"

	src, q, err := s.loader.Resolve(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	res := Result{Origin: src.Origin(), SourceID: src.ID()}
	key := src.ID() + "|" + q.Key()

	if spec, ok := s.cached(ctx, key); ok {
		res.Spec = spec
		res.Cached = true
		return res, nil
	}

	table := s.loader.LoadFrom(ctx, src, q)

	start := time.Now()
	res.Spec = chartspec.Build(table, court.Segments(), s.chartOpts...)
	metrics.RecordSpecBuild(float64(time.Since(start).Microseconds()) / 1000)
	s.builds.Add(1)
	if len(table.Players()) == 0 {
		metrics.RecordDegenerateSpec()
		s.logger.Debug(ctx, "no players in table, serving placeholder chart",
			logger.String("source", src.ID()))
	}

	s.mu.Lock()
	s.lastOrigin = src.Origin()
	s.lastRows = table.Len()
	s.mu.Unlock()

	// Empty tables may come from a failed read; keep them out of the cache.
	if table.Len() > 0 {
		s.store(ctx, key, res.Spec)
	}
	return res, nil
}

func (s *Service) cached(ctx context.Context, key string) (chartspec.Spec, bool) {
	if s.cache == nil {
		return chartspec.Spec{}, false
	}
	raw, ok := s.cache.Get(ctx, key)
	if ok {
		var spec chartspec.Spec
		err := json.Unmarshal(raw, &spec)
		if err == nil {
			metrics.RecordCacheHit(s.cacheBackend)
			s.hits.Add(1)
			return spec, true
		}
		s.logger.Warn(ctx, "discarding undecodable cache entry",
			logger.String("key", key), logger.Error(err))
	}
	metrics.RecordCacheMiss(s.cacheBackend)
	s.misses.Add(1)
	return chartspec.Spec{}, false
}

func (s *Service) store(ctx context.Context, key string, spec chartspec.Spec) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		s.logger.Error(ctx, "encode chart spec", logger.Error(err))
		return
	}
	if err := s.cache.Put(ctx, key, raw); err != nil {
		s.logger.Warn(ctx, "cache put failed", logger.String("key", key), logger.Error(err))
	}
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"charts_built": s.builds.Load(),
		"cache_hits":   s.hits.Load(),
		"cache_misses": s.misses.Load(),
		"last_origin":  string(s.lastOrigin),
		"last_rows":    s.lastRows,
	}

	if s.warmPool != nil {
		stats["warm_done"] = s.warmPool.Processed()
		stats["warm_failed"] = s.warmPool.Failed()
	}

	if s.cache != nil {
		entries := s.cache.Len(ctx)
		stats["cache_backend"] = s.cacheBackend
		stats["cache_entries"] = entries
		metrics.UpdateCacheEntries(entries)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	return stats
}
