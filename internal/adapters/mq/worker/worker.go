// Package worker builds queued charts in the background so the first
// request for a season finds them cached.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/shotchart/internal/adapters/mq/queue"
	"github.com/okian/shotchart/pkg/logger"
	"github.com/okian/shotchart/pkg/metrics"
)

const defaultWorkers = 2

// Job statuses reported to metrics.
const (
	statusOK     = "ok"
	statusFailed = "failed"
)

// Warmer builds the chart for one job.
type Warmer interface {
	Warm(ctx context.Context, j queue.Job) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// InMemoryWorker drains a queue into a Warmer.
type InMemoryWorker struct {
	queue  Queue
	warmer Warmer
	name   string

	processed *atomic.Int64
	failed    *atomic.Int64

	started  atomic.Bool
	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, w Warmer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:     q,
		warmer:    w,
		name:      "worker",
		processed: &atomic.Int64{},
		failed:    &atomic.Int64{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(wk)
	}
	wk.logger = wk.logger.Named(wk.name)
	return wk
}

// Run processes jobs until the queue is drained, ctx is cancelled or
// Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	w.started.Store(true)
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown stops the worker after its current job. It returns at once for
// a worker that never ran and may be called more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	if !w.started.Load() {
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns the number of jobs this worker finished, failed or not.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of jobs whose chart could not be built.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	metrics.WarmWorkerBusy(1)
	err := w.warmer.Warm(ctx, j)
	metrics.WarmWorkerBusy(-1)
	latency := float64(time.Since(start).Microseconds()) / 1000

	w.processed.Add(1)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWarmJob(statusFailed, latency)
		w.logger.Warn(ctx, "chart warm-up failed",
			logger.String("season", j.Season),
			logger.String("player", j.Player),
			logger.Error(err))
		return
	}
	metrics.RecordWarmJob(statusOK, latency)
	w.logger.Debug(ctx, "chart warmed",
		logger.String("season", j.Season),
		logger.String("player", j.Player),
		logger.Float64("latency_ms", latency))
}

// Pool runs several workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of count workers. Non-positive counts use two.
func NewPool(count int, q Queue, w Warmer, opts ...Option) *Pool {
	if count < 1 {
		count = defaultWorkers
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   q,
		logger:  logger.Nop(),
	}
	for i := range count {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, w, wopts...)
	}
	p.logger = p.workers[0].logger
	return p
}

// Start runs every worker in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		w.started.Store(true)
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the jobs finished across all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed returns the failed jobs across all workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Wait blocks until every started worker has returned or ctx is done.
// Workers return once the queue is closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		if !w.started.Load() {
			continue
		}
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("wait for workers: %w", ctx.Err())
		}
	}
	return nil
}

// Shutdown closes the queue, stops the workers and waits for those that
// were started.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		w.stopOnce.Do(func() { close(w.shutdown) })
	}
	for i, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return err
		}
	}
	return nil
}
