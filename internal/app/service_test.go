package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	service "github.com/okian/shotchart/internal/app"
	"github.com/okian/shotchart/internal/adapters/cache"
	"github.com/okian/shotchart/internal/adapters/source"
	"github.com/okian/shotchart/internal/domain/chartspec"
	"github.com/okian/shotchart/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const snapshot = `playerNameI,gameid,timeActual,x,y,shotResult,Season
A. Player,G2,2023-10-26 19:30:00,10.5,40,Made,2023-24
A. Player,G1,2023-10-24 19:05:00,12,44,Missed,2023-24
B. Player,G9,2023-10-25 20:01:00,22,31,Made,2023-24
`

func writeSnapshot(dir string) {
	So(os.WriteFile(filepath.Join(dir, "season.csv"), []byte(snapshot), 0o600), ShouldBeNil)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it serves the synthetic sample", func() {
			res, err := svc.Chart(context.Background(), source.Query{})
			So(err, ShouldBeNil)
			So(res.Origin, ShouldEqual, source.OriginSynthetic)
			So(res.Spec.Player.Options, ShouldResemble, []string{source.SyntheticPlayer})
			So(res.Spec.SliderMax, ShouldEqual, 1)
			So(res.Cached, ShouldBeFalse)
		})
	})
}

func TestService_Chart(t *testing.T) {
	Convey("Given a service over a data root", t, func() {
		root := t.TempDir()
		writeSnapshot(root)
		mem := cache.NewMemory(cache.WithMaxEntries(8))
		svc := service.New(
			service.WithLoader(source.NewLoader(source.WithDataRoot(root))),
			service.WithCache(mem, cache.BackendMemory),
			service.WithChartOptions(chartspec.WithSize(900, 500)),
			service.WithLogger(logger.Get()),
		)
		ctx := context.Background()

		Convey("When requesting an explicit dataset", func() {
			res, err := svc.Chart(ctx, source.Query{Path: "season.csv"})

			Convey("Then the chart covers its players", func() {
				So(err, ShouldBeNil)
				So(res.Origin, ShouldEqual, source.OriginFile)
				So(res.Spec.Player.Options, ShouldResemble, []string{"A. Player", "B. Player"})
				So(res.Spec.Width, ShouldEqual, 900)
				So(len(res.Spec.Visible("A. Player", 1)), ShouldEqual, 2)
			})

			Convey("And a repeated request is served from cache", func() {
				again, err := svc.Chart(ctx, source.Query{Path: "season.csv"})
				So(err, ShouldBeNil)
				So(again.Cached, ShouldBeTrue)
				So(again.Spec, ShouldResemble, res.Spec)
				So(mem.Len(ctx), ShouldEqual, 1)

				stats := svc.Stats()
				So(stats["cache_hits"], ShouldEqual, int64(1))
				So(stats["cache_misses"], ShouldEqual, int64(1))
				So(stats["charts_built"], ShouldEqual, int64(1))
				So(stats["cache_entries"], ShouldEqual, 1)
			})

			Convey("And different filters are cached separately", func() {
				one, err := svc.Chart(ctx, source.Query{Path: "season.csv", Player: "B. Player"})
				So(err, ShouldBeNil)
				So(one.Cached, ShouldBeFalse)
				So(one.Spec.Player.Options, ShouldResemble, []string{"B. Player"})
				So(mem.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the filters match nothing", func() {
			res, err := svc.Chart(ctx, source.Query{Path: "season.csv", Season: "1999-00"})

			Convey("Then the placeholder chart is served and not cached", func() {
				So(err, ShouldBeNil)
				So(res.Spec.Player.Options, ShouldResemble, []string{chartspec.PlaceholderPlayer})
				So(res.Spec.SliderMax, ShouldEqual, 1)
				So(mem.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the override escapes the data root", func() {
			_, err := svc.Chart(ctx, source.Query{Path: "../season.csv"})

			Convey("Then the query is rejected", func() {
				So(errors.Is(err, source.ErrInvalidQuery), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with no fallback data", t, func() {
		svc := service.New(service.WithLoader(source.NewLoader(
			source.WithDataRoot(t.TempDir()),
			source.WithSyntheticFallback(false),
		)))

		Convey("An unreachable override is reported", func() {
			_, err := svc.Chart(context.Background(), source.Query{Path: "missing.parquet"})
			So(errors.Is(err, source.ErrUnreachablePath), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		mem := cache.NewMemory()
		svc := service.New(service.WithCache(mem, cache.BackendMemory))
		defer svc.Stop()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then the default chart is warmed", func() {
				So(err, ShouldBeNil)
				So(mem.Len(context.Background()), ShouldEqual, 1)
				stats := svc.Stats()
				So(stats["started"], ShouldBeTrue)
				So(stats["last_origin"], ShouldEqual, "synthetic")
				So(stats["last_rows"], ShouldEqual, 5)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
				So(svc.Stats()["charts_built"], ShouldEqual, int64(1))
			})

			Convey("And stopping clears the started flag", func() {
				svc.Stop()
				So(svc.Stats()["started"], ShouldBeFalse)
			})
		})
	})
}

const seasons = `playerNameI,gameid,timeActual,x,y,shotResult,Season
A. Player,G1,2022-10-20 19:00:00,12,44,Missed,2022-23
A. Player,G2,2022-10-22 19:00:00,5,48,Made,2022-23
A. Player,G3,2023-10-24 19:05:00,10.5,40,Made,2023-24
`

func TestService_Warmup(t *testing.T) {
	Convey("Given a service configured to warm two seasons", t, func() {
		path := filepath.Join(t.TempDir(), "seasons.csv")
		So(os.WriteFile(path, []byte(seasons), 0o600), ShouldBeNil)
		file, err := source.NewFileSource(path, 0, logger.Nop())
		So(err, ShouldBeNil)

		mem := cache.NewMemory(cache.WithMaxEntries(8))
		svc := service.New(
			service.WithLoader(source.NewLoader(source.WithConfigured(file))),
			service.WithCache(mem, cache.BackendMemory),
			service.WithWarmup([]string{"2022-23", "2023-24"}, 2),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the service stops after the warm-up drains", func() {
			svc.Stop()

			Convey("Then each season chart is cached", func() {
				stats := svc.Stats()
				So(stats["warm_done"], ShouldEqual, int64(2))
				So(stats["warm_failed"], ShouldEqual, int64(0))
				So(stats["charts_built"], ShouldEqual, int64(3))
				So(mem.Len(ctx), ShouldEqual, 3)

				res, err := svc.Chart(ctx, source.Query{Season: "2022-23"})
				So(err, ShouldBeNil)
				So(res.Cached, ShouldBeTrue)
				So(res.Spec.SliderMax, ShouldEqual, 1)
			})
		})
	})
}
