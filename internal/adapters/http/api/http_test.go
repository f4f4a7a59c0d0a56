package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/shotchart/internal/adapters/http/api"
	"github.com/okian/shotchart/internal/adapters/source"
	service "github.com/okian/shotchart/internal/app"
	"github.com/okian/shotchart/internal/config"
	"github.com/okian/shotchart/internal/domain/chartspec"
	. "github.com/smartystreets/goconvey/convey"
)

// stubCharts returns a canned result and records the last query.
type stubCharts struct {
	res service.Result
	err error
	got source.Query
}

func (s *stubCharts) Chart(_ context.Context, q source.Query) (service.Result, error) {
	s.got = q
	if s.err != nil {
		return service.Result{}, s.err
	}
	return s.res, nil
}

type stubStats map[string]any

func (s stubStats) Stats() map[string]any { return s }

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestShotsEndpoints(t *testing.T) {
	Convey("Given an API server over the default service", t, func() {
		svc := service.New()
		mux := newMux(svc, svc)

		Convey("When requesting the core spec", func() {
			w := get(mux, "/api/shots/spec")

			Convey("Then the synthetic chart is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(w.Header().Get("X-Data-Origin"), ShouldEqual, "synthetic")
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

				var spec chartspec.Spec
				So(json.Unmarshal(w.Body.Bytes(), &spec), ShouldBeNil)
				So(spec.Player.Options, ShouldResemble, []string{source.SyntheticPlayer})
				So(spec.SliderMax, ShouldEqual, 1)
				So(spec.WindowSize, ShouldEqual, chartspec.WindowSize)
				So(len(spec.Shots.Rows), ShouldEqual, 5)
			})
		})

		Convey("When requesting the rendered chart", func() {
			w := get(mux, "/api/shots/chart")

			Convey("Then a Vega-Lite document and the slider bound are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Spec      map[string]any `json:"spec"`
					SliderMax int            `json:"slider_max"`
					Origin    string         `json:"origin"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.SliderMax, ShouldEqual, 1)
				So(body.Origin, ShouldEqual, "synthetic")
				So(body.Spec["$schema"], ShouldContainSubstring, "vega-lite/v5")
				So(body.Spec["params"], ShouldHaveLength, 2)
			})
		})

		Convey("When the limit is not an integer", func() {
			for _, limit := range []string{"abc", "1.5", "1e3"} {
				w := get(mux, "/api/shots/spec?limit="+limit)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the limit is out of bounds", func() {
			for _, limit := range []string{"-5", "0", "500", "900000", "99999999999999999999", "-99999999999999999999"} {
				w := get(mux, "/api/shots/spec?limit="+limit)
				So(w.Code, ShouldEqual, http.StatusOK)
			}
		})

		Convey("When the dataset escapes the data root", func() {
			w := get(mux, "/api/shots/chart?dataset=../../etc/passwd")

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_query")
			})
		})

		Convey("When using the wrong method", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/shots/spec", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When requesting stats after a chart", func() {
			get(mux, "/api/shots/spec")
			w := get(mux, "/stats")

			Convey("Then the counters are reported", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats["charts_built"], ShouldEqual, 1.0)
				So(stats["last_origin"], ShouldEqual, "synthetic")
			})
		})

		Convey("When scraping health", func() {
			get(mux, "/api/shots/spec")
			w := get(mux, "/healthz")

			Convey("Then Prometheus metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
			})
		})
	})
}

func TestShotsQueryAndErrors(t *testing.T) {
	Convey("Given an API server over a stub", t, func() {
		stub := &stubCharts{res: service.Result{Spec: chartspec.Spec{SliderMax: 6}, Origin: source.OriginFile}}
		mux := newMux(stub, stubStats{})

		Convey("Query parameters are passed through", func() {
			w := get(mux, "/api/shots/spec?dataset=pbp.parquet&season=2023-24&player=A.%20Player&limit=5000")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(stub.got, ShouldResemble, source.Query{
				Path:     "pbp.parquet",
				Season:   "2023-24",
				Player:   "A. Player",
				RowLimit: 5000,
			})
		})

		Convey("An absent limit is left to the loader", func() {
			get(mux, "/api/shots/chart")
			So(stub.got.RowLimit, ShouldEqual, 0)
		})

		Convey("Non-positive limits fall back to the default", func() {
			for _, limit := range []string{"0", "-5", "-99999999999999999999"} {
				stub.got = source.Query{RowLimit: -1}
				w := get(mux, "/api/shots/spec?limit="+limit)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(stub.got.RowLimit, ShouldEqual, 0)
				So(source.ClampRowLimit(stub.got.RowLimit, config.DefaultRowLimit), ShouldEqual, config.DefaultRowLimit)
			}
		})

		Convey("An overflowing limit saturates to the maximum", func() {
			w := get(mux, "/api/shots/spec?limit=99999999999999999999")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(stub.got.RowLimit, ShouldEqual, config.MaxRowLimit)
		})

		Convey("Small limits are raised to the minimum by the loader", func() {
			get(mux, "/api/shots/spec?limit=500")
			So(stub.got.RowLimit, ShouldEqual, 500)
			So(source.ClampRowLimit(stub.got.RowLimit, config.DefaultRowLimit), ShouldEqual, config.MinRowLimit)
		})

		Convey("An unreachable dataset is a 404", func() {
			stub.err = fmt.Errorf("service.chart: %w: missing.parquet", source.ErrUnreachablePath)
			w := get(mux, "/api/shots/spec?dataset=missing.parquet")

			So(w.Code, ShouldEqual, http.StatusNotFound)
			body := decodeError(w)
			So(body["code"], ShouldEqual, "dataset_unavailable")
			So(body["message"], ShouldContainSubstring, "missing.parquet")
		})

		Convey("An invalid query is a 400", func() {
			stub.err = fmt.Errorf("service.chart: %w: bad extension", source.ErrInvalidQuery)
			w := get(mux, "/api/shots/chart?dataset=data.txt")

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "invalid_query")
		})

		Convey("Other failures are a 500 without internals", func() {
			stub.err = errors.New("disk on fire")
			w := get(mux, "/api/shots/spec")

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			body := decodeError(w)
			So(body["code"], ShouldEqual, "internal_error")
			So(body["message"], ShouldNotContainSubstring, "disk")
		})

		Convey("A caller supplied request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/shots/spec", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "req-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-123")
		})
	})
}

func TestClampSpeed(t *testing.T) {
	Convey("Given client speeds in seconds", t, func() {
		So(api.ClampSpeed(0, api.DefaultPlaySpeed), ShouldEqual, 400*time.Millisecond)
		So(api.ClampSpeed(-1, api.DefaultPlaySpeed), ShouldEqual, 400*time.Millisecond)
		So(api.ClampSpeed(0.25, api.DefaultPlaySpeed), ShouldEqual, 250*time.Millisecond)
		So(api.ClampSpeed(0.01, api.DefaultPlaySpeed), ShouldEqual, api.MinPlaySpeed)
		So(api.ClampSpeed(5, api.DefaultPlaySpeed), ShouldEqual, api.MaxPlaySpeed)
		So(api.ClampSpeed(0, 0), ShouldEqual, api.MinPlaySpeed)
	})
}

type frame struct {
	Session   string `json:"session"`
	GStart    int    `json:"gstart"`
	SliderMax int    `json:"slider_max"`
	State     string `json:"state"`
	SpeedMS   int    `json:"speed_ms"`
}

func playURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/shots/play"
}

func TestPlay(t *testing.T) {
	Convey("Given a play endpoint over three window starts", t, func() {
		stub := &stubCharts{res: service.Result{Spec: chartspec.Spec{SliderMax: 3}}}
		srv := httptest.NewServer(newMux(stub, stubStats{}))
		defer srv.Close()

		Convey("When a client plays then stops", func() {
			conn, _, err := websocket.DefaultDialer.Dial(playURL(srv), nil)
			So(err, ShouldBeNil)
			defer func() { _ = conn.Close() }()

			read := func() frame {
				_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
				var f frame
				So(conn.ReadJSON(&f), ShouldBeNil)
				return f
			}

			first := read()
			So(first.Session, ShouldNotBeEmpty)
			So(first.GStart, ShouldEqual, 1)
			So(first.SliderMax, ShouldEqual, 3)
			So(first.State, ShouldEqual, "paused")
			So(first.SpeedMS, ShouldEqual, 400)

			So(conn.WriteJSON(map[string]any{"action": "play", "speed": 0.1}), ShouldBeNil)
			started := read()
			So(started.State, ShouldEqual, "playing")
			So(started.SpeedMS, ShouldEqual, 100)

			var starts []int
			for range 4 {
				starts = append(starts, read().GStart)
			}
			So(starts, ShouldResemble, []int{2, 3, 2, 1})

			So(conn.WriteJSON(map[string]any{"action": "stop"}), ShouldBeNil)
			var last frame
			for range 10 {
				last = read()
				if last.State == "stopped" {
					break
				}
			}
			So(last.State, ShouldEqual, "stopped")
			So(last.GStart, ShouldEqual, 1)
			So(last.Session, ShouldEqual, first.Session)
		})
	})

	Convey("Given a play endpoint whose dataset is unavailable", t, func() {
		stub := &stubCharts{err: source.ErrUnreachablePath}
		srv := httptest.NewServer(newMux(stub, stubStats{}))
		defer srv.Close()

		Convey("Then the handshake is refused with a 404", func() {
			_, resp, err := websocket.DefaultDialer.Dial(playURL(srv)+"?dataset=missing.csv", nil)
			So(err, ShouldEqual, websocket.ErrBadHandshake)
			So(resp, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			_ = resp.Body.Close()
		})
	})
}
