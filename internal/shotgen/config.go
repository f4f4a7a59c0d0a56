package shotgen

import (
	"fmt"
	"time"
)

// Defaults for the generated dataset.
const (
	DefaultPlayers      = 4
	DefaultGames        = 60
	DefaultShotsPerGame = 16
	DefaultRowGroupSize = 1000
	DefaultTimeout      = 30 * time.Second
)

// Config holds configuration for one generator run.
type Config struct {
	OutDir       string        // Dataset directory; Season=<label> partitions go below it
	Seasons      []string      // Season labels, e.g. "2023-24"
	Players      int           // Players per season
	Games        int           // Games per season; every player appears in every game
	ShotsPerGame int           // Mean shots per player per game
	RowGroupSize int           // Max rows per parquet row group
	Seed         uint64        // Seed for coordinates, results and game ids
	BaseURL      string        // When set, verify a running server after writing
	Dataset      string        // dataset query parameter sent during verification
	Timeout      time.Duration // HTTP request timeout
	Verbose      bool          // Log every written file
}

// Validate rejects configurations that would write an empty dataset.
func (c *Config) Validate() error {
	switch {
	case c.OutDir == "":
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	case len(c.Seasons) == 0:
		return fmt.Errorf("%w: at least one season is required", ErrInvalidConfig)
	case c.Players <= 0 || c.Players > len(playerNames):
		return fmt.Errorf("%w: players must be in [1, %d]", ErrInvalidConfig, len(playerNames))
	case c.Games <= 0:
		return fmt.Errorf("%w: games must be positive", ErrInvalidConfig)
	case c.ShotsPerGame <= 0:
		return fmt.Errorf("%w: shots per game must be positive", ErrInvalidConfig)
	}
	return nil
}

// Row is one generated shot as written to parquet. The season is carried by
// the partition directory, not a column.
type Row struct {
	Player string    `parquet:"playerNameI"`
	GameID string    `parquet:"gameid"`
	Time   time.Time `parquet:"timeActual,timestamp(millisecond)"`
	X      float64   `parquet:"x"`
	Y      float64   `parquet:"y"`
	Result string    `parquet:"shotResult"`
}

// Stats holds run statistics.
type Stats struct {
	Files     int
	Rows      int
	Verified  bool
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
