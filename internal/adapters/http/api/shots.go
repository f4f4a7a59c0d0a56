package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/shotchart/internal/adapters/source"
	"github.com/okian/shotchart/internal/adapters/vegalite"
	"github.com/okian/shotchart/internal/config"
	"github.com/okian/shotchart/pkg/logger"
)

// Query parameter names shared by the shots endpoints.
const (
	paramDataset = "dataset"
	paramSeason  = "season"
	paramPlayer  = "player"
	paramLimit   = "limit"
)

// ShotsHandler serves chart specs.
type ShotsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewShotsHandler creates a new shots handler.
func NewShotsHandler(deps Dependencies, log logger.Logger) *ShotsHandler {
	return &ShotsHandler{deps: deps, logger: log}
}

type chartResponse struct {
	Spec      vegalite.Document `json:"spec"`
	SliderMax int               `json:"slider_max"`
	Origin    string            `json:"origin"`
	Cached    bool              `json:"cached"`
}

// HandleSpec handles GET /api/shots/spec and returns the chart spec as
// plain data.
func (h *ShotsHandler) HandleSpec(w http.ResponseWriter, r *http.Request) {
	const op = "api.shots.spec"

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, nil)
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	res, err := h.deps.Chart(r.Context(), q)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	w.Header().Set("X-Data-Origin", string(res.Origin))
	writeJSON(w, http.StatusOK, res.Spec)
}

// HandleChart handles GET /api/shots/chart and returns a Vega-Lite document
// ready for vega-embed.
func (h *ShotsHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.shots.chart"

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, nil)
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	res, err := h.deps.Chart(r.Context(), q)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{
		Spec:      vegalite.Render(res.Spec),
		SliderMax: res.Spec.SliderMax,
		Origin:    string(res.Origin),
		Cached:    res.Cached,
	})
}

func (h *ShotsHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "chart request failed",
			logger.String("op", op), logger.Error(err))
		// Internal details stay in the log.
		err = errors.New("chart unavailable")
	} else {
		h.logger.Debug(r.Context(), "chart request rejected",
			logger.String("op", op), logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// parseQuery reads the dataset query from URL parameters. An absent or
// non-positive limit means the configured default; other integers are
// clamped by the loader. Only non-integer text is rejected.
func parseQuery(v url.Values) (source.Query, error) {
	q := source.Query{
		Path:   strings.TrimSpace(v.Get(paramDataset)),
		Season: strings.TrimSpace(v.Get(paramSeason)),
		Player: strings.TrimSpace(v.Get(paramPlayer)),
	}
	if raw := strings.TrimSpace(v.Get(paramLimit)); raw != "" {
		n, err := strconv.Atoi(raw)
		var numErr *strconv.NumError
		switch {
		case errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange):
			// Out of int range: saturate, the loader clamps anyway.
			if n > 0 {
				q.RowLimit = config.MaxRowLimit
			}
		case err != nil:
			return source.Query{}, fmt.Errorf("%w: limit must be an integer, got %q", ErrBadRequest, raw)
		case n > 0:
			q.RowLimit = n
		}
	}
	return q, nil
}
