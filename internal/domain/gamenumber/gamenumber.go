// Package gamenumber assigns each player a chronological, 1-based index for
// every game they appear in.
package gamenumber

import (
	"sort"
	"time"

	"github.com/okian/shotchart/internal/domain/shot"
)

// Key identifies one game for one player.
type Key struct {
	Player string
	GameID string
}

type game struct {
	key   Key
	first time.Time
}

// Assign numbers every (player, game) pair that has at least one valid
// timestamp. Within a player, games are ordered by their earliest timestamp,
// ties broken by game id, and numbered from 1. Pairs without any valid
// timestamp are absent from the result.
func Assign(events []shot.Event) map[Key]int {
	firsts := make(map[Key]time.Time, len(events)/4+1)
	for _, e := range events {
		if !e.HasTime() {
			continue
		}
		k := Key{Player: e.Player, GameID: e.GameID}
		if t, ok := firsts[k]; !ok || e.Time.Before(t) {
			firsts[k] = e.Time
		}
	}

	games := make([]game, 0, len(firsts))
	for k, t := range firsts {
		games = append(games, game{key: k, first: t})
	}
	sort.Slice(games, func(i, j int) bool {
		a, b := games[i], games[j]
		if a.key.Player != b.key.Player {
			return a.key.Player < b.key.Player
		}
		if !a.first.Equal(b.first) {
			return a.first.Before(b.first)
		}
		return a.key.GameID < b.key.GameID
	})

	numbers := make(map[Key]int, len(games))
	n := 0
	for i, g := range games {
		if i == 0 || games[i-1].key.Player != g.key.Player {
			n = 0
		}
		n++
		numbers[g.key] = n
	}
	return numbers
}

// Derive returns a copy of t with GameNumber set on every row whose game was
// numbered and cleared on every other row. Any numbers already present are
// recomputed, so Derive is idempotent.
func Derive(t shot.Table) shot.Table {
	numbers := Assign(t.Events)
	out := t.Clone()
	for i := range out.Events {
		e := &out.Events[i]
		e.GameNumber = numbers[Key{Player: e.Player, GameID: e.GameID}]
	}
	out.HasGameNumber = true
	return out
}

// Count returns the number of distinct numbered games in a derived table.
func Count(t shot.Table) int {
	seen := make(map[Key]struct{})
	for _, e := range t.Events {
		if e.HasGameNumber() {
			seen[Key{Player: e.Player, GameID: e.GameID}] = struct{}{}
		}
	}
	return len(seen)
}
