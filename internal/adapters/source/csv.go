package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/okian/shotchart/internal/domain/shot"
)

// readCSV decodes a headered CSV snapshot, keeping at most limit rows that
// pass the query predicates.
func readCSV(ctx context.Context, r io.Reader, q Query, limit int) (shot.Table, tally, error) {
	var t tally
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	columns, err := cr.Read()
	if err != nil {
		return shot.Table{}, t, fmt.Errorf("read csv header: %w", err)
	}
	h, err := newHeader(columns)
	if err != nil {
		return shot.Table{}, t, err
	}

	table := shot.Table{Events: make([]shot.Event, 0, 256), HasGameNumber: h.hasGameNumber}
	for n := 0; len(table.Events) < limit; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return shot.Table{}, t, err
			}
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return shot.Table{}, t, fmt.Errorf("read csv row %d: %w", n+2, err)
		}
		e, ok := h.decode(record, &t)
		if !ok || !q.filter(e) {
			continue
		}
		check(e, &t)
		table.Events = append(table.Events, e)
	}
	return table, t, nil
}
