package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/shotchart/internal/domain/shot"
	"github.com/okian/shotchart/pkg/logger"
)

// FileSource reads a single .parquet or .csv snapshot.
type FileSource struct {
	path     string
	defLimit int
	logger   logger.Logger
}

// NewFileSource returns a source for the snapshot at path.
func NewFileSource(path string, defaultLimit int, log logger.Logger) (*FileSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".csv":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &FileSource{path: path, defLimit: defaultLimit, logger: log}, nil
}

// ID implements Source.
func (s *FileSource) ID() string { return "file:" + s.path }

// Origin implements Source.
func (s *FileSource) Origin() Origin { return OriginFile }

// Reachable reports whether the snapshot file exists.
func (s *FileSource) Reachable() bool {
	st, err := os.Stat(s.path)
	return err == nil && st.Mode().IsRegular()
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context, q Query) (shot.Table, error) {
	limit := ClampRowLimit(q.RowLimit, s.defLimit)

	var (
		table shot.Table
		t     tally
		err   error
	)
	if strings.EqualFold(filepath.Ext(s.path), ".csv") {
		table, t, err = s.loadCSV(ctx, q, limit)
	} else {
		table, t, err = readParquet(ctx, s.path, q, limit, "")
	}
	if err != nil {
		return shot.Table{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
	}
	t.report(ctx, s.logger, s.ID())
	return table, nil
}

func (s *FileSource) loadCSV(ctx context.Context, q Query, limit int) (shot.Table, tally, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return shot.Table{}, tally{}, err
	}
	defer func() { _ = f.Close() }()
	return readCSV(ctx, f, q, limit)
}
