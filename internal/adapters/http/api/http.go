// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/okian/shotchart/internal/app"
	"github.com/okian/shotchart/internal/adapters/source"
	"github.com/okian/shotchart/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Chart builds, or fetches from cache, the chart for a dataset query.
	Chart(ctx context.Context, q source.Query) (service.Result, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	shotsHandler  *ShotsHandler
	playHandler   *PlayHandler
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	playSpeed time.Duration
	logger    logger.Logger
}

// WithPlaySpeed sets the default delay between animation frames.
func WithPlaySpeed(d time.Duration) Option {
	return func(o *serverOptions) {
		if d > 0 {
			o.playSpeed = d
		}
	}
}

// WithLogger sets the logger handlers report through.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := serverOptions{playSpeed: DefaultPlaySpeed, logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		shotsHandler:  NewShotsHandler(deps, o.logger),
		playHandler:   NewPlayHandler(deps, o.playSpeed, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/shots/spec", MetricsMiddleware(s.shotsHandler.HandleSpec, "shots_spec"))
	mux.HandleFunc("/api/shots/chart", MetricsMiddleware(s.shotsHandler.HandleChart, "shots_chart"))
	// The websocket handler hijacks the connection, so it skips the
	// status-capturing middleware.
	mux.HandleFunc("/api/shots/play", s.playHandler.HandlePlay)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
