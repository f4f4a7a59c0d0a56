package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/shotchart/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8001")
			convey.So(cfg.DataRoot, convey.ShouldEqual, "data")
			convey.So(cfg.DataPath, convey.ShouldEqual, "pbp_small.parquet")
			convey.So(cfg.RowLimit, convey.ShouldEqual, config.DefaultRowLimit)
			convey.So(cfg.SyntheticFallback, convey.ShouldBeTrue)
			convey.So(cfg.PlaySpeed(), convey.ShouldEqual, 400*time.Millisecond)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8001")
				convey.So(cfg.CacheSize, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SHOTCHART_ADDR", ":9090")
			_ = os.Setenv("SHOTCHART_DATA_PATH", "season_dataset")
			_ = os.Setenv("SHOTCHART_ROW_LIMIT", "120000")
			_ = os.Setenv("SHOTCHART_REDIS_ADDR", "localhost:6379")
			_ = os.Setenv("SHOTCHART_CACHE_TTL_SECONDS", "30")
			_ = os.Setenv("SHOTCHART_SYNTHETIC_FALLBACK", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DataPath, convey.ShouldEqual, "season_dataset")
				convey.So(cfg.RowLimit, convey.ShouldEqual, 120000)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.CacheTTL(), convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.SyntheticFallback, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# snapshot settings
addr: ":7000"
data_root: "/srv/nba"
data_path: "pbp"
row_limit: 5000
chart_width: 900
warm_seasons:
  - "2022-23"
  - "2023-24"
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SHOTCHART_CONFIG", tmpFile)
			_ = os.Setenv("SHOTCHART_ROW_LIMIT", "8000")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")       // From file
				convey.So(cfg.DataRoot, convey.ShouldEqual, "/srv/nba") // From file
				convey.So(cfg.RowLimit, convey.ShouldEqual, 8000)       // Overridden by env
				convey.So(cfg.ChartWidth, convey.ShouldEqual, 900)      // From file
				convey.So(cfg.ChartHeight, convey.ShouldEqual, 400)     // From defaults
				convey.So(cfg.WarmSeasons, convey.ShouldResemble, []string{"2022-23", "2023-24"})
				convey.So(cfg.WarmWorkers, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SHOTCHART_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SHOTCHART_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a DSN but no table", func() {
			tmpFile := createTempConfigFile(`
data_dsn: "postgres://localhost/nba?sslmode=disable"
data_table: ""
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SHOTCHART_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "data_table")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SHOTCHART_ROW_LIMIT", "lots")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a negative cache size", func() {
			_ = os.Setenv("SHOTCHART_CACHE_SIZE", "-1")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with negative warm-up workers", func() {
			_ = os.Setenv("SHOTCHART_WARM_WORKERS", "-2")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"SHOTCHART_CONFIG",
		"SHOTCHART_ADDR",
		"SHOTCHART_DATA_PATH",
		"SHOTCHART_ROW_LIMIT",
		"SHOTCHART_REDIS_ADDR",
		"SHOTCHART_CACHE_TTL_SECONDS",
		"SHOTCHART_CACHE_SIZE",
		"SHOTCHART_SYNTHETIC_FALLBACK",
		"SHOTCHART_WARM_WORKERS",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "shotchart-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
