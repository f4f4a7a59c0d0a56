package source

import (
	"context"
	"slices"

	"github.com/okian/shotchart/internal/domain/shot"
	"github.com/okian/shotchart/pkg/logger"
	"github.com/okian/shotchart/pkg/metrics"
)

// Malformed row reasons reported to metrics.
const (
	reasonUnknownResult = "unknown_result"
	reasonBadTime       = "bad_time"
	reasonBadCoordinate = "bad_coordinate"
)

// tally counts rows that were dropped or degraded while coercing.
type tally struct {
	unknownResult int
	badTime       int
	badCoordinate int
}

func (t *tally) add(o tally) {
	t.unknownResult += o.unknownResult
	t.badTime += o.badTime
	t.badCoordinate += o.badCoordinate
}

func (t tally) total() int { return t.unknownResult + t.badTime + t.badCoordinate }

func (t tally) report(ctx context.Context, log logger.Logger, id string) {
	if t.total() == 0 {
		return
	}
	metrics.RecordMalformedRows(reasonUnknownResult, t.unknownResult)
	metrics.RecordMalformedRows(reasonBadTime, t.badTime)
	metrics.RecordMalformedRows(reasonBadCoordinate, t.badCoordinate)
	log.Warn(ctx, "malformed rows in dataset",
		logger.String("source", id),
		logger.Int("unknown_result", t.unknownResult),
		logger.Int("bad_time", t.badTime),
		logger.Int("bad_coordinate", t.badCoordinate))
}

// header maps schema columns to positions in a string record.
type header struct {
	index         map[string]int
	hasGameNumber bool
}

// newHeader validates columns against the schema. implied names columns the
// caller fills in itself, such as a partition key.
func newHeader(columns []string, implied ...string) (header, error) {
	present := make([]string, 0, len(columns)+len(implied))
	present = append(present, columns...)
	present = append(present, implied...)
	if err := shot.ValidateColumns(present); err != nil {
		return header{}, err
	}
	h := header{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		h.index[c] = i
	}
	h.hasGameNumber = slices.Contains(columns, shot.ColGameNumber)
	return h, nil
}

func (h header) get(record []string, col string) string {
	i, ok := h.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// decode coerces one string record. ok is false when the row has to be
// dropped.
func (h header) decode(record []string, t *tally) (shot.Event, bool) {
	res, err := shot.ParseResult(h.get(record, shot.ColResult))
	if err != nil {
		t.unknownResult++
		return shot.Event{}, false
	}
	e := shot.Event{
		Player: h.get(record, shot.ColPlayer),
		GameID: h.get(record, shot.ColGameID),
		Time:   shot.ParseTime(h.get(record, shot.ColTime)),
		X:      shot.ParseFloat(h.get(record, shot.ColX)),
		Y:      shot.ParseFloat(h.get(record, shot.ColY)),
		Result: res,
		Season: h.get(record, shot.ColSeason),
	}
	if h.hasGameNumber {
		e.GameNumber = shot.ParseGameNumber(h.get(record, shot.ColGameNumber))
	}
	return e, true
}

// check counts kept rows with a bad timestamp or coordinate.
func check(e shot.Event, t *tally) {
	if !e.HasTime() {
		t.badTime++
	}
	if !e.Renderable() {
		t.badCoordinate++
	}
}
