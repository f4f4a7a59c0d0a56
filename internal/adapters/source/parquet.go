package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/okian/shotchart/internal/domain/shot"
)

const parquetBatch = 512

type timeUnit int

const (
	unitGuess timeUnit = iota
	unitMillis
	unitMicros
	unitNanos
)

// parquetColumns maps leaf column indexes of a file to schema columns.
type parquetColumns struct {
	byIndex       map[int]string
	timeUnit      timeUnit
	hasGameNumber bool
}

func lookupColumns(schema *parquet.Schema, implied ...string) (parquetColumns, error) {
	cols := parquetColumns{byIndex: make(map[int]string, len(shot.Schema))}
	present := make([]string, 0, len(shot.Schema))
	for _, f := range shot.Schema {
		leaf, ok := schema.Lookup(f.Name)
		if !ok {
			continue
		}
		present = append(present, f.Name)
		cols.byIndex[leaf.ColumnIndex] = f.Name
		if f.Name == shot.ColTime {
			cols.timeUnit = unitOf(leaf.Node)
		}
	}
	cols.hasGameNumber = slices.Contains(present, shot.ColGameNumber)
	if err := shot.ValidateColumns(append(present, implied...)); err != nil {
		return cols, err
	}
	return cols, nil
}

func unitOf(node parquet.Node) timeUnit {
	lt := node.Type().LogicalType()
	if lt == nil || lt.Timestamp == nil {
		return unitGuess
	}
	switch u := lt.Timestamp.Unit; {
	case u.Millis != nil:
		return unitMillis
	case u.Micros != nil:
		return unitMicros
	case u.Nanos != nil:
		return unitNanos
	}
	return unitGuess
}

// readParquet reads one parquet file row group by row group, keeping at most
// limit rows that pass the query predicates. A non-empty season is the
// partition label the file was found under and fills the Season column.
func readParquet(ctx context.Context, path string, q Query, limit int, season string) (shot.Table, tally, error) {
	var t tally
	f, err := os.Open(path)
	if err != nil {
		return shot.Table{}, t, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return shot.Table{}, t, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return shot.Table{}, t, fmt.Errorf("open parquet %s: %w", path, err)
	}

	var implied []string
	if season != "" {
		implied = append(implied, shot.ColSeason)
	}
	cols, err := lookupColumns(pf.Schema(), implied...)
	if err != nil {
		return shot.Table{}, t, fmt.Errorf("%s: %w", path, err)
	}

	table := shot.Table{Events: make([]shot.Event, 0, 256), HasGameNumber: cols.hasGameNumber}
	buf := make([]parquet.Row, parquetBatch)
	for _, rg := range pf.RowGroups() {
		if len(table.Events) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return shot.Table{}, t, err
		}
		if err := cols.readRowGroup(rg, q, limit, season, buf, &table, &t); err != nil {
			return shot.Table{}, t, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}
	return table, t, nil
}

func (c parquetColumns) readRowGroup(rg parquet.RowGroup, q Query, limit int, season string,
	buf []parquet.Row, table *shot.Table, t *tally,
) error {
	rows := rg.Rows()
	defer func() { _ = rows.Close() }()

	for len(table.Events) < limit {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			if len(table.Events) >= limit {
				break
			}
			e, ok := c.decode(row, season, t)
			if !ok || !q.filter(e) {
				continue
			}
			check(e, t)
			table.Events = append(table.Events, e)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}

func (c parquetColumns) decode(row parquet.Row, season string, t *tally) (shot.Event, bool) {
	e := shot.Event{X: math.NaN(), Y: math.NaN()}
	var result string
	for _, v := range row {
		name, ok := c.byIndex[v.Column()]
		if !ok {
			continue
		}
		switch name {
		case shot.ColPlayer:
			e.Player = valueString(v)
		case shot.ColGameID:
			e.GameID = valueString(v)
		case shot.ColTime:
			e.Time = valueTime(v, c.timeUnit)
		case shot.ColX:
			e.X = valueFloat(v)
		case shot.ColY:
			e.Y = valueFloat(v)
		case shot.ColResult:
			result = valueString(v)
		case shot.ColSeason:
			e.Season = valueString(v)
		case shot.ColGameNumber:
			e.GameNumber = valueGameNumber(v)
		}
	}
	if season != "" {
		e.Season = season
	}
	res, err := shot.ParseResult(result)
	if err != nil {
		t.unknownResult++
		return shot.Event{}, false
	}
	e.Result = res
	return e, true
}

func valueString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	}
	return v.String()
}

func valueFloat(v parquet.Value) float64 {
	if v.IsNull() {
		return math.NaN()
	}
	switch v.Kind() {
	case parquet.Double:
		return v.Double()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.ByteArray:
		return shot.ParseFloat(string(v.ByteArray()))
	}
	return math.NaN()
}

func valueGameNumber(v parquet.Value) int {
	f := valueFloat(v)
	if math.IsNaN(f) || f < 1 {
		return 0
	}
	return int(f)
}

func valueTime(v parquet.Value, unit timeUnit) time.Time {
	if v.IsNull() {
		return time.Time{}
	}
	switch v.Kind() {
	case parquet.Int64:
		return fromEpoch(v.Int64(), unit)
	case parquet.ByteArray:
		return shot.ParseTime(string(v.ByteArray()))
	}
	return time.Time{}
}

// fromEpoch converts an integer timestamp. Without a declared unit the
// magnitude decides, which is unambiguous for dates after 1973.
func fromEpoch(n int64, unit timeUnit) time.Time {
	if unit == unitGuess {
		switch abs := max(n, -n); {
		case abs >= 1e17:
			unit = unitNanos
		case abs >= 1e14:
			unit = unitMicros
		default:
			unit = unitMillis
		}
	}
	switch unit {
	case unitNanos:
		return time.Unix(0, n).UTC()
	case unitMicros:
		return time.UnixMicro(n).UTC()
	default:
		return time.UnixMilli(n).UTC()
	}
}
