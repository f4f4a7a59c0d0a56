package shotgen

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/shotchart/pkg/logger"
)

// window mirrors the chart's rolling window width.
const window = 40

// maxServerLimit is the largest row limit the server accepts.
const maxServerLimit = 200_000

// expectedSliderMax is the last window start for games numbered 1..games.
func expectedSliderMax(games int) int {
	return max(1, games-window+1)
}

// verify checks the served spec of every generated season against what was
// written: the player domain, the slider bound and per-player game numbers.
func verify(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)
	players := Players(cfg.Players)
	perSeason := cfg.Players * cfg.Games * cfg.ShotsPerGame * 3 / 2
	limit := min(perSeason, maxServerLimit)
	if perSeason > maxServerLimit {
		logger.Get().Warn(ctx, "season may exceed the server row limit; game numbers are checked on a prefix",
			logger.Int("maxRows", perSeason))
	}

	for _, season := range cfg.Seasons {
		spec, origin, err := client.fetchSpec(ctx, cfg.BaseURL, cfg.Dataset, season, limit)
		if err != nil {
			return fmt.Errorf("season %s: %w", season, err)
		}
		if err := checkSpec(spec, players, cfg.Games, perSeason <= maxServerLimit); err != nil {
			return fmt.Errorf("season %s: %w", season, err)
		}
		logger.Get().Info(ctx, "season verified",
			logger.String("season", season),
			logger.String("origin", origin),
			logger.Int("sliderMax", spec.SliderMax),
			logger.Int("rows", len(spec.Shots.Rows)))
	}
	return nil
}

// checkSpec compares one served spec with the generated season. complete
// reports whether every row fit under the server limit.
func checkSpec(spec specResponse, players []string, games int, complete bool) error {
	if !slices.Equal(spec.PlayerParam.Options, players) {
		return fmt.Errorf("%w: players %v, want %v", ErrVerification, spec.PlayerParam.Options, players)
	}
	if spec.PlayerParam.Default != players[0] {
		return fmt.Errorf("%w: default player %q, want %q", ErrVerification, spec.PlayerParam.Default, players[0])
	}
	if !complete {
		return nil
	}
	if want := expectedSliderMax(games); spec.SliderMax != want {
		return fmt.Errorf("%w: slider_max %d, want %d", ErrVerification, spec.SliderMax, want)
	}

	last := make(map[string]int, len(players))
	for _, r := range spec.Shots.Rows {
		if r.GameNumber < 1 || r.GameNumber > games {
			return fmt.Errorf("%w: %s has game number %d outside [1, %d]", ErrVerification, r.Player, r.GameNumber, games)
		}
		last[r.Player] = max(last[r.Player], r.GameNumber)
	}
	for _, p := range players {
		if last[p] != games {
			return fmt.Errorf("%w: %s numbered %d games, want %d", ErrVerification, p, last[p], games)
		}
	}
	return nil
}
