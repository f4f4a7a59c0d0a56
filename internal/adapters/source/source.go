// Package source loads shot event tables from snapshot files, season
// partitioned parquet datasets, a Postgres query engine or a built-in sample,
// and coerces them into the shot schema.
package source

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/okian/shotchart/internal/config"
	"github.com/okian/shotchart/internal/domain/shot"
)

// Origin names the kind of source a table came from.
type Origin string

// Table origins.
const (
	OriginFile      Origin = "file"
	OriginDataset   Origin = "dataset"
	OriginSQL       Origin = "sql"
	OriginSynthetic Origin = "synthetic"
	OriginEmpty     Origin = "empty"
)

// Query selects a source and narrows the rows it yields.
type Query struct {
	// Path overrides the configured dataset. It is resolved against the data
	// root and must stay inside it.
	Path string
	// Season keeps rows of one season label, e.g. "2023-24".
	Season string
	// Player keeps rows of one player.
	Player string
	// RowLimit caps the number of rows read; see ClampRowLimit.
	RowLimit int
}

// Source yields shot tables.
type Source interface {
	// ID identifies the underlying data, stable across calls.
	ID() string
	Origin() Origin
	Load(ctx context.Context, q Query) (shot.Table, error)
}

// Errors returned by sources and the Loader.
var (
	ErrUnreachablePath   = errors.New("dataset path is unreachable")
	ErrInvalidQuery      = errors.New("invalid dataset query")
	ErrPathEscapesRoot   = errors.New("dataset path escapes the data root")
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrSourceFailed      = errors.New("dataset source failed")
)

// ClampRowLimit returns n clamped into [config.MinRowLimit, config.MaxRowLimit].
// A non-positive n selects def, which is clamped as well.
func ClampRowLimit(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n <= 0 {
		n = config.DefaultRowLimit
	}
	return min(max(n, config.MinRowLimit), config.MaxRowLimit)
}

// Key renders the query filters for cache keys. Path is excluded; it is
// part of the resolved source ID.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString("season=")
	b.WriteString(q.Season)
	b.WriteString("|player=")
	b.WriteString(q.Player)
	b.WriteString("|limit=")
	b.WriteString(strconv.Itoa(q.RowLimit))
	return b.String()
}

// filter reports whether an event passes the query's row predicates.
func (q Query) filter(e shot.Event) bool {
	if q.Season != "" && e.Season != q.Season {
		return false
	}
	if q.Player != "" && e.Player != q.Player {
		return false
	}
	return true
}
