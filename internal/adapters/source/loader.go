package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/shotchart/internal/config"
	"github.com/okian/shotchart/internal/domain/gamenumber"
	"github.com/okian/shotchart/internal/domain/shot"
	"github.com/okian/shotchart/pkg/logger"
	"github.com/okian/shotchart/pkg/metrics"
)

// reachable is implemented by sources backed by a path that may not exist.
type reachable interface {
	Reachable() bool
}

// Loader resolves which source serves a query and loads it.
//
// Resolution order: an explicit Query.Path, then the configured source, then
// the synthetic sample. Failures of a reachable source never surface; the
// caller receives an empty table instead.
type Loader struct {
	root       string
	configured Source
	synthetic  bool
	defLimit   int
	logger     logger.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDataRoot sets the directory explicit paths are resolved against.
func WithDataRoot(dir string) LoaderOption {
	return func(l *Loader) {
		if dir != "" {
			l.root = dir
		}
	}
}

// WithConfigured sets the configured default source.
func WithConfigured(src Source) LoaderOption {
	return func(l *Loader) {
		l.configured = src
	}
}

// WithSyntheticFallback enables or disables the synthetic sample.
func WithSyntheticFallback(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.synthetic = enabled
	}
}

// WithDefaultRowLimit sets the row cap used when a query carries none.
func WithDefaultRowLimit(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.defLimit = n
		}
	}
}

// WithLogger sets the loader logger.
func WithLogger(log logger.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewLoader creates a Loader. By default it has no configured source and
// falls back to the synthetic sample.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		root:      ".",
		synthetic: true,
		defLimit:  config.DefaultRowLimit,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromConfig builds the configured source: Postgres when a DSN is set,
// otherwise the data path. It returns a nil Source when neither is set.
func FromConfig(cfg *config.Config, log logger.Logger) (Source, error) {
	if cfg.DataDSN != "" {
		src, err := NewSQLSource(cfg.DataDSN, cfg.DataTable, cfg.RowLimit, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	if cfg.DataPath == "" {
		return nil, nil
	}
	path := cfg.DataPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.DataRoot, path)
	}
	return sourceAt(path, cfg.RowLimit, log)
}

// sourceAt picks a reader by path shape: a snapshot file by extension,
// anything else is treated as a partitioned dataset directory.
func sourceAt(path string, defLimit int, log logger.Logger) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".csv":
		src, err := NewFileSource(path, defLimit, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	case "":
		return NewDatasetSource(path, defLimit, log), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Resolve picks the source for q and returns q with its row limit clamped.
// The only errors are an invalid override path and an unreachable override
// with no fallback to take its place.
func (l *Loader) Resolve(ctx context.Context, q Query) (Source, Query, error) {
	q.RowLimit = ClampRowLimit(q.RowLimit, l.defLimit)

	if q.Path == "" {
		return l.fallback(), q, nil
	}

	if !filepath.IsLocal(q.Path) {
		return nil, q, fmt.Errorf("%w: %w: %s", ErrInvalidQuery, ErrPathEscapesRoot, q.Path)
	}
	path := filepath.Join(l.root, q.Path)

	if _, err := os.Stat(path); err == nil {
		src, err := sourceAt(path, l.defLimit, l.logger)
		if err != nil {
			return nil, q, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return src, q, nil
	}

	fb := l.fallback()
	if fb.Origin() == OriginEmpty {
		return nil, q, fmt.Errorf("%w: %s", ErrUnreachablePath, q.Path)
	}
	l.logger.Warn(ctx, "dataset override unreachable, using fallback",
		logger.String("path", q.Path),
		logger.String("fallback", fb.ID()))
	return fb, q, nil
}

// fallback returns the configured source when it is usable, then the
// synthetic sample when enabled, then a source that yields no rows.
func (l *Loader) fallback() Source {
	if l.configured != nil {
		r, ok := l.configured.(reachable)
		if !ok || r.Reachable() {
			return l.configured
		}
	}
	if l.synthetic {
		return syntheticSource{}
	}
	return emptySource{}
}

// Load resolves q and loads the table, deriving game numbers when the source
// did not supply them.
func (l *Loader) Load(ctx context.Context, q Query) (shot.Table, Origin, error) {
	src, q, err := l.Resolve(ctx, q)
	if err != nil {
		return shot.Table{}, "", err
	}
	return l.LoadFrom(ctx, src, q), src.Origin(), nil
}

// LoadFrom reads src. A failing source yields an empty table.
func (l *Loader) LoadFrom(ctx context.Context, src Source, q Query) shot.Table {
	start := time.Now()
	origin := string(src.Origin())

	t, err := src.Load(ctx, q)
	if err != nil {
		metrics.RecordDatasetLoadError(origin)
		l.logger.Error(ctx, "dataset load failed, serving empty table",
			logger.String("source", src.ID()),
			logger.Error(err))
		t = shot.Empty()
	}

	if !t.HasGameNumber {
		t = gamenumber.Derive(t)
		metrics.RecordDerivedGames(gamenumber.Count(t))
	}

	elapsed := time.Since(start)
	metrics.RecordDatasetLoad(origin, t.Len(), float64(elapsed.Milliseconds()))
	l.logger.Debug(ctx, "dataset loaded",
		logger.String("source", src.ID()),
		logger.Int("rows", t.Len()),
		logger.Duration("elapsed", elapsed))
	return t
}
