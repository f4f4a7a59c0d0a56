package source

import (
	"context"
	"time"

	"github.com/okian/shotchart/internal/domain/shot"
)

// SyntheticPlayer is the only player in the built-in sample.
const SyntheticPlayer = "V. Wembanyama"

// Synthetic returns the five-row sample served when no real data is
// reachable: one player, five games on five consecutive days, numbered 1..5.
func Synthetic() shot.Table {
	xs := []float64{10, 20, 30, 40, 45}
	ys := []float64{20, 30, 50, 70, 10}
	results := []shot.Result{shot.Made, shot.Missed, shot.Made, shot.Missed, shot.Made}
	gameIDs := []string{"G1", "G2", "G3", "G4", "G5"}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	events := make([]shot.Event, len(xs))
	for i := range events {
		events[i] = shot.Event{
			Player:     SyntheticPlayer,
			GameID:     gameIDs[i],
			Time:       day.AddDate(0, 0, i),
			X:          xs[i],
			Y:          ys[i],
			Result:     results[i],
			Season:     "2023-24",
			GameNumber: i + 1,
		}
	}
	return shot.Table{Events: events, HasGameNumber: true}
}

type syntheticSource struct{}

func (syntheticSource) ID() string { return "synthetic" }

func (syntheticSource) Origin() Origin { return OriginSynthetic }

func (syntheticSource) Load(_ context.Context, q Query) (shot.Table, error) {
	t := Synthetic()
	kept := t.Events[:0]
	for _, e := range t.Events {
		if q.filter(e) {
			kept = append(kept, e)
		}
	}
	t.Events = kept
	return t, nil
}

type emptySource struct{}

func (emptySource) ID() string { return "empty" }

func (emptySource) Origin() Origin { return OriginEmpty }

func (emptySource) Load(context.Context, Query) (shot.Table, error) { return shot.Empty(), nil }
