// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file and SHOTCHART_* env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"
)

// Row limit bounds applied to every dataset query.
const (
	MinRowLimit     = 1_000
	MaxRowLimit     = 200_000
	DefaultRowLimit = 50_000
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8001".
	Addr string `koanf:"addr"`

	// DataRoot is the directory explicit dataset overrides are resolved against.
	DataRoot string `koanf:"data_root"`

	// DataPath is the configured default snapshot: a .parquet/.csv file or a
	// Season=... partitioned directory. Relative paths resolve against DataRoot.
	DataPath string `koanf:"data_path"`

	// DataDSN points at a Postgres database holding shot events. When set it
	// takes priority over DataPath as the configured source.
	DataDSN string `koanf:"data_dsn"`

	// DataTable names the table queried through DataDSN.
	DataTable string `koanf:"data_table"`

	// SyntheticFallback serves a five-row sample when no real data is
	// reachable. Without it an unreachable dataset override is an error.
	SyntheticFallback bool `koanf:"synthetic_fallback"`

	// RowLimit is the default row cap for dataset queries, clamped to
	// [MinRowLimit, MaxRowLimit].
	RowLimit int `koanf:"row_limit"`

	// CacheSize bounds the in-memory spec cache. Zero disables caching.
	CacheSize int `koanf:"cache_size"`

	// RedisAddr switches the spec cache to Redis when non-empty.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// CacheTTLSeconds expires Redis cache entries; zero keeps them forever.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// PlaySpeedMS is the default delay between animation frames.
	PlaySpeedMS int `koanf:"play_speed_ms"`

	// WarmSeasons are built in the background after startup so their first
	// request is served from cache.
	WarmSeasons []string `koanf:"warm_seasons"`

	// WarmWorkers bounds concurrent warm-up builds.
	WarmWorkers int `koanf:"warm_workers"`

	// ChartWidth and ChartHeight size the rendered chart in pixels.
	ChartWidth  int `koanf:"chart_width"`
	ChartHeight int `koanf:"chart_height"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8001",
		DataRoot:          "data",
		DataPath:          "pbp_small.parquet",
		DataTable:         "shots",
		SyntheticFallback: true,
		RowLimit:          DefaultRowLimit,
		CacheSize:         64,
		PlaySpeedMS:       400,
		WarmWorkers:       2,
		ChartWidth:        700,
		ChartHeight:       400,
	}
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// PlaySpeed returns PlaySpeedMS as a duration.
func (c *Config) PlaySpeed() time.Duration {
	return time.Duration(c.PlaySpeedMS) * time.Millisecond
}

// Validate checks values that would make the service misbehave.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataDSN != "" && c.DataTable == "":
		return fmt.Errorf("%w: data_table is required with data_dsn", ErrInvalidConfig)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache_size must not be negative", ErrInvalidConfig)
	case c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.PlaySpeedMS <= 0:
		return fmt.Errorf("%w: play_speed_ms must be positive", ErrInvalidConfig)
	case c.WarmWorkers < 0:
		return fmt.Errorf("%w: warm_workers must not be negative", ErrInvalidConfig)
	case c.ChartWidth <= 0 || c.ChartHeight <= 0:
		return fmt.Errorf("%w: chart size must be positive", ErrInvalidConfig)
	}
	return nil
}
