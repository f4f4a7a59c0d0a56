package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/okian/shotchart/internal/shotgen"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		outDir    = flag.String("out", "data/shots", "Dataset directory")
		seasons   = flag.String("seasons", "2023-24", "Comma separated season labels")
		players   = flag.Int("players", shotgen.DefaultPlayers, "Players per season")
		games     = flag.Int("games", shotgen.DefaultGames, "Games per season")
		shots     = flag.Int("shots", shotgen.DefaultShotsPerGame, "Mean shots per player per game")
		rowGroup  = flag.Int("rowgroup", shotgen.DefaultRowGroupSize, "Max rows per parquet row group")
		seed      = flag.Uint64("seed", 1, "Random seed")
		baseURL   = flag.String("url", "", "Verify a running server at this base URL")
		dataset   = flag.String("dataset", "shots", "dataset query parameter used for verification")
		timeout   = flag.Duration("timeout", shotgen.DefaultTimeout, "HTTP request timeout")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		shotgen.ShowHelp()
		return
	}

	if err := shotgen.SetupLogging(*logFormat, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &shotgen.Config{
		OutDir:       *outDir,
		Seasons:      splitSeasons(*seasons),
		Players:      *players,
		Games:        *games,
		ShotsPerGame: *shots,
		RowGroupSize: *rowGroup,
		Seed:         *seed,
		BaseURL:      strings.TrimRight(*baseURL, "/"),
		Dataset:      *dataset,
		Timeout:      *timeout,
		Verbose:      *verbose,
	}

	if _, err := shotgen.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("shot-gen failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}

func splitSeasons(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
