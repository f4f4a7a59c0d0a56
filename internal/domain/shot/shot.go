// Package shot contains the shot event model and the boundary schema every
// data source is coerced into.
package shot

import (
	"math"
	"sort"
	"time"
)

// Result is the outcome of a shot attempt.
type Result string

// Shot results as they appear in snapshots.
const (
	Made   Result = "Made"
	Missed Result = "Missed"
)

// Event is one shot attempt.
//
// A zero Time means the snapshot had no parsable timestamp; such rows stay
// in the table but never receive a game number. GameNumber is 1-based and
// zero when absent.
type Event struct {
	Player     string    `json:"playerNameI"`
	GameID     string    `json:"gameid"`
	Time       time.Time `json:"timeActual,omitzero"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Result     Result    `json:"shotResult"`
	Season     string    `json:"Season"`
	GameNumber int       `json:"game_number,omitempty"`
}

// HasTime reports whether the event can take part in game numbering.
func (e Event) HasTime() bool { return !e.Time.IsZero() }

// HasGameNumber reports whether a game number was assigned.
func (e Event) HasGameNumber() bool { return e.GameNumber > 0 }

// Renderable reports whether both coordinates are finite. Coordinates outside
// the court domain are still renderable; the chart axes are fixed.
func (e Event) Renderable() bool {
	return !math.IsNaN(e.X) && !math.IsInf(e.X, 0) && !math.IsNaN(e.Y) && !math.IsInf(e.Y, 0)
}

// Table is an ordered set of shot events.
type Table struct {
	Events []Event
	// HasGameNumber is true when the source supplied a game_number column or
	// the deriver has already run.
	HasGameNumber bool
}

// Empty returns a well-formed table with no rows.
func Empty() Table {
	return Table{Events: []Event{}}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Events) }

// Players returns the sorted distinct non-empty player identifiers.
func (t Table) Players() []string {
	seen := make(map[string]struct{}, 16)
	for _, e := range t.Events {
		if e.Player != "" {
			seen[e.Player] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MaxGameNumber returns the largest assigned game number, or zero.
func (t Table) MaxGameNumber() int {
	maxN := 0
	for _, e := range t.Events {
		if e.GameNumber > maxN {
			maxN = e.GameNumber
		}
	}
	return maxN
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	events := make([]Event, len(t.Events))
	copy(events, t.Events)
	return Table{Events: events, HasGameNumber: t.HasGameNumber}
}
