package shotgen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/shotchart/pkg/logger"
)

// Run generates the dataset, writes one partition per season and, when a
// base URL is configured, verifies a running server against it.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "generating shot dataset",
		logger.String("outDir", cfg.OutDir),
		logger.Any("seasons", cfg.Seasons),
		logger.Int("players", cfg.Players),
		logger.Int("games", cfg.Games),
		logger.Int("shotsPerGame", cfg.ShotsPerGame))

	g := newGenerator(cfg.Seed)
	for _, season := range cfg.Seasons {
		rows, err := g.season(ctx, cfg, season)
		if err != nil {
			return stats, fmt.Errorf("generate %s: %w", season, err)
		}
		path, err := writePartition(cfg.OutDir, season, rows, cfg.RowGroupSize)
		if err != nil {
			return stats, fmt.Errorf("write %s: %w", season, err)
		}
		stats.Files++
		stats.Rows += len(rows)
		if cfg.Verbose {
			log.Info(ctx, "partition written", logger.String("path", path), logger.Int("rows", len(rows)))
		}
	}

	if cfg.BaseURL != "" {
		if err := verify(ctx, cfg); err != nil {
			return stats, err
		}
		stats.Verified = true
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var rowsPerSecond float64
	if stats.Duration > 0 {
		rowsPerSecond = float64(stats.Rows) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("files", stats.Files),
		logger.Int("rows", stats.Rows),
		logger.Bool("verified", stats.Verified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("rowsPerSecond", rowsPerSecond))
}
