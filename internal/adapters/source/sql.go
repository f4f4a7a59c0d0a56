package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/okian/shotchart/internal/domain/shot"
	"github.com/okian/shotchart/pkg/logger"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource queries a Postgres table holding shot events. Season, player and
// the row cap are pushed into the query.
type SQLSource struct {
	db       *sql.DB
	table    string
	defLimit int
	logger   logger.Logger
}

// NewSQLSource opens a connection pool for dsn. The database is not contacted
// until the first query; call Ping to check reachability.
func NewSQLSource(dsn, table string, defaultLimit int, log logger.Logger) (*SQLSource, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: bad table name %q", ErrInvalidQuery, table)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if log == nil {
		log = logger.Nop()
	}
	return &SQLSource{db: db, table: table, defLimit: defaultLimit, logger: log}, nil
}

// ID implements Source.
func (s *SQLSource) ID() string { return "sql:" + s.table }

// Origin implements Source.
func (s *SQLSource) Origin() Origin { return OriginSQL }

// Ping checks the database is reachable.
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// buildQuery renders the SELECT for q with positional arguments.
func (s *SQLSource) buildQuery(q Query, limit int) (string, []any) {
	query := "SELECT * FROM " + quoteTable(s.table) + " WHERE 1=1"
	args := []any{}
	argIdx := 1

	if q.Season != "" {
		query += fmt.Sprintf(" AND %s = $%d", pq.QuoteIdentifier(shot.ColSeason), argIdx)
		args = append(args, q.Season)
		argIdx++
	}

	if q.Player != "" {
		query += fmt.Sprintf(" AND %s = $%d", pq.QuoteIdentifier(shot.ColPlayer), argIdx)
		args = append(args, q.Player)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY %s, %s", pq.QuoteIdentifier(shot.ColPlayer), pq.QuoteIdentifier(shot.ColTime))
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	return query, args
}

// Load implements Source.
func (s *SQLSource) Load(ctx context.Context, q Query) (shot.Table, error) {
	limit := ClampRowLimit(q.RowLimit, s.defLimit)
	query, args := s.buildQuery(q, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return shot.Table{}, fmt.Errorf("%w: query shots: %w", ErrSourceFailed, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return shot.Table{}, fmt.Errorf("%w: columns: %w", ErrSourceFailed, err)
	}
	h, err := newHeader(columns)
	if err != nil {
		return shot.Table{}, fmt.Errorf("%w: %w", ErrSourceFailed, err)
	}

	raw := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	record := make([]string, len(columns))

	var t tally
	table := shot.Table{Events: make([]shot.Event, 0, 256), HasGameNumber: h.hasGameNumber}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return shot.Table{}, fmt.Errorf("%w: scan shot: %w", ErrSourceFailed, err)
		}
		for i, v := range raw {
			record[i] = v.String
		}
		e, ok := h.decode(record, &t)
		if !ok {
			continue
		}
		check(e, &t)
		table.Events = append(table.Events, e)
	}
	if err := rows.Err(); err != nil {
		return shot.Table{}, fmt.Errorf("%w: iterate shots: %w", ErrSourceFailed, err)
	}

	t.report(ctx, s.logger, s.ID())
	return table, nil
}

func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
