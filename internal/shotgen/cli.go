package shotgen

import (
	"fmt"
	"os"

	"github.com/okian/shotchart/pkg/logger"
)

// SetupLogging initializes the global logger in the given format.
func SetupLogging(format string, verbose bool) error {
	if err := logger.InitWith(os.Stdout, format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Shot Dataset Generator
======================

Writes a season-partitioned parquet dataset of synthetic shots for local
development, and optionally checks that a running shotchart server serves it.

Usage:
  go run ./cmd/shot-gen [options]

Options:
  -out string
        Dataset directory (default "data/shots")
  -seasons string
        Comma separated season labels (default "2023-24")
  -players int
        Players per season, at most 12 (default 4)
  -games int
        Games per season (default 60)
  -shots int
        Mean shots per player per game (default 16)
  -rowgroup int
        Max rows per parquet row group (default 1000)
  -seed uint
        Random seed (default 1)
  -url string
        Verify a running server at this base URL after writing
  -dataset string
        dataset query parameter for verification, relative to the server's data root (default "shots")
  -timeout duration
        HTTP request timeout (default 30s)
  -log-format string
        text or json (default "text")
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Write two seasons under data/shots
  go run ./cmd/shot-gen -seasons 2022-23,2023-24

  # Write and verify against a local server whose data_root is ./data
  go run ./cmd/shot-gen -url http://localhost:8001 -dataset shots
`)
}
