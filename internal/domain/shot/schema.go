package shot

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Column names shared with snapshots and the chart renderer.
const (
	ColPlayer     = "playerNameI"
	ColGameID     = "gameid"
	ColTime       = "timeActual"
	ColX          = "x"
	ColY          = "y"
	ColResult     = "shotResult"
	ColSeason     = "Season"
	ColGameNumber = "game_number"
)

// Kind is the semantic type of a column.
type Kind int

// Semantic column kinds.
const (
	KindString Kind = iota
	KindTimestamp
	KindNumber
	KindResult
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindNumber:
		return "number"
	case KindResult:
		return "result"
	case KindInteger:
		return "integer"
	default:
		return "unknown"
	}
}

// Field describes one column of the boundary schema.
type Field struct {
	Name     string
	Kind     Kind
	Optional bool
}

// Schema is the explicit ShotEvent schema sources are validated against.
var Schema = []Field{
	{Name: ColPlayer, Kind: KindString},
	{Name: ColGameID, Kind: KindString},
	{Name: ColTime, Kind: KindTimestamp},
	{Name: ColX, Kind: KindNumber},
	{Name: ColY, Kind: KindNumber},
	{Name: ColResult, Kind: KindResult},
	{Name: ColSeason, Kind: KindString},
	{Name: ColGameNumber, Kind: KindInteger, Optional: true},
}

// Errors returned by schema validation and coercion.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrUnknownResult = errors.New("unknown shot result")
)

// Columns returns the schema column names in order.
func Columns() []string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return names
}

// ValidateColumns checks that every required schema column is present.
func ValidateColumns(columns []string) error {
	var missing []string
	for _, f := range Schema {
		if f.Optional {
			continue
		}
		if !slices.Contains(columns, f.Name) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses the timestamp formats found in snapshots. Unparsable or
// blank input yields the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nat") || strings.EqualFold(s, "null") {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseResult normalizes a shot result label.
func ParseResult(s string) (Result, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "made", "make", "1", "true":
		return Made, nil
	case "missed", "miss", "0", "false":
		return Missed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResult, s)
}

// ParseFloat parses a coordinate. Blank or invalid input yields NaN.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ParseGameNumber parses an optional game number; some writers store integer
// columns with missing values as floats ("12.0") or blanks.
func ParseGameNumber(s string) int {
	f := ParseFloat(s)
	if math.IsNaN(f) || f < 1 {
		return 0
	}
	return int(f)
}
