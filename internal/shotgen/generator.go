package shotgen

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Shot location bounds in stored coordinates: x runs away from the
// baseline, y along it, with the rim at (rimX, rimY).
const (
	minX  = 4.5
	maxX  = 45.0
	minY  = 3.0
	maxY  = 97.0
	rimX  = 5.25
	rimY  = 50.0
	reach = 45.0
)

// Made probability falls linearly from closeMake at the rim to farMake at
// reach.
const (
	closeMake = 0.65
	farMake   = 0.30
)

var playerNames = []string{
	"A. Carter", "B. Okafor", "C. Lindqvist", "D. Moreau",
	"E. Haddad", "F. Nakamura", "G. Petrov", "H. Silva",
	"I. Mensah", "J. Kowalski", "K. Ivers", "L. Duarte",
}

// Players returns the player names a config generates, in sorted order.
func Players(n int) []string {
	return append([]string(nil), playerNames[:n]...)
}

// generator draws every random value from one seeded stream so a seed
// reproduces the dataset byte for byte.
type generator struct {
	src *rand.ChaCha8
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)
	return &generator{src: src, rng: rand.New(src)}
}

// season generates every row of one season: games every other day from the
// season's opening date, each shared by all players.
func (g *generator) season(ctx context.Context, cfg *Config, label string) ([]Row, error) {
	opening, err := seasonOpening(label)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, cfg.Players*cfg.Games*cfg.ShotsPerGame)
	for game := range cfg.Games {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := uuid.NewRandomFromReader(g.src)
		if err != nil {
			return nil, fmt.Errorf("game id: %w", err)
		}
		tipOff := opening.AddDate(0, 0, 2*game)
		for _, player := range playerNames[:cfg.Players] {
			shots := max(1, cfg.ShotsPerGame/2+g.rng.IntN(cfg.ShotsPerGame+1))
			for range shots {
				rows = append(rows, g.shot(player, id.String(), tipOff))
			}
		}
	}
	return rows, nil
}

func (g *generator) shot(player, gameID string, tipOff time.Time) Row {
	// Squaring biases attempts toward the rim.
	u := g.rng.Float64()
	x := minX + (maxX-minX)*u*u
	y := minY + (maxY-minY)*g.rng.Float64()

	dist := math.Hypot(x-rimX, y-rimY)
	p := closeMake - (closeMake-farMake)*math.Min(dist/reach, 1)
	result := "Missed"
	if g.rng.Float64() < p {
		result = "Made"
	}

	offset := time.Duration(g.rng.IntN(int((48 * time.Minute).Seconds()))) * time.Second
	return Row{
		Player: player,
		GameID: gameID,
		Time:   tipOff.Add(offset),
		X:      math.Round(x*10) / 10,
		Y:      math.Round(y*10) / 10,
		Result: result,
	}
}

// seasonOpening returns 19:30 UTC on October 24 of the season's first year.
// Labels look like "2023-24".
func seasonOpening(label string) (time.Time, error) {
	first, _, _ := strings.Cut(label, "-")
	year, err := strconv.Atoi(first)
	if err != nil || len(first) != 4 {
		return time.Time{}, fmt.Errorf("%w: season label %q must start with a year", ErrInvalidConfig, label)
	}
	return time.Date(year, time.October, 24, 19, 30, 0, 0, time.UTC), nil
}
