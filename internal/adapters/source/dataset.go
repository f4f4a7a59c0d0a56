package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/shotchart/internal/domain/shot"
	"github.com/okian/shotchart/pkg/logger"
)

// partitionPrefix is the hive-style directory prefix of season partitions.
const partitionPrefix = shot.ColSeason + "="

// DatasetSource reads a directory of season partitions laid out as
// Season=<label>/*.parquet. A season predicate skips every other partition
// without opening its files; player predicate and row cap are applied while
// streaming row groups.
type DatasetSource struct {
	dir      string
	defLimit int
	logger   logger.Logger
}

// NewDatasetSource returns a source for the partitioned dataset at dir.
func NewDatasetSource(dir string, defaultLimit int, log logger.Logger) *DatasetSource {
	if log == nil {
		log = logger.Nop()
	}
	return &DatasetSource{dir: dir, defLimit: defaultLimit, logger: log}
}

// ID implements Source.
func (s *DatasetSource) ID() string { return "dataset:" + s.dir }

// Origin implements Source.
func (s *DatasetSource) Origin() Origin { return OriginDataset }

// Reachable reports whether the dataset directory exists.
func (s *DatasetSource) Reachable() bool {
	st, err := os.Stat(s.dir)
	return err == nil && st.IsDir()
}

// partition is one season directory.
type partition struct {
	season string
	dir    string
}

// partitions lists season partitions in label order.
func (s *DatasetSource) partitions() ([]partition, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var parts []partition
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), partitionPrefix) {
			continue
		}
		label, err := url.PathUnescape(strings.TrimPrefix(e.Name(), partitionPrefix))
		if err != nil {
			label = strings.TrimPrefix(e.Name(), partitionPrefix)
		}
		parts = append(parts, partition{season: label, dir: filepath.Join(s.dir, e.Name())})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].season < parts[j].season })
	return parts, nil
}

// Load implements Source.
func (s *DatasetSource) Load(ctx context.Context, q Query) (shot.Table, error) {
	limit := ClampRowLimit(q.RowLimit, s.defLimit)

	parts, err := s.partitions()
	if err != nil {
		return shot.Table{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
	}

	table := shot.Table{Events: make([]shot.Event, 0, 256)}
	var t tally
	files, hasGameNumber := 0, true
	for _, p := range parts {
		if q.Season != "" && p.season != q.Season {
			continue
		}
		paths, err := filepath.Glob(filepath.Join(p.dir, "*.parquet"))
		if err != nil {
			return shot.Table{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
		}
		sort.Strings(paths)
		for _, path := range paths {
			remaining := limit - len(table.Events)
			if remaining <= 0 {
				break
			}
			part, pt, err := readParquet(ctx, path, q, remaining, p.season)
			if err != nil {
				return shot.Table{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
			}
			t.add(pt)
			files++
			hasGameNumber = hasGameNumber && part.HasGameNumber
			table.Events = append(table.Events, part.Events...)
		}
	}
	// A column that only some files carry is treated as absent everywhere.
	table.HasGameNumber = files > 0 && hasGameNumber

	t.report(ctx, s.logger, s.ID())
	s.logger.Debug(ctx, "dataset scanned",
		logger.String("dir", s.dir),
		logger.Int("files", files),
		logger.Int("rows", table.Len()))
	return table, nil
}
