// Package site serves the embedded chart pages.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded pages to mux: the landing page at / and the
// interactive chart at /shots.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/shots", NewShotsPageHandler().HandleShots)
	mux.Handle("/", http.FileServer(FS()))
}

// ShotsPageHandler serves the chart page.
type ShotsPageHandler struct{}

// NewShotsPageHandler creates a new chart page handler.
func NewShotsPageHandler() *ShotsPageHandler {
	return &ShotsPageHandler{}
}

// HandleShots handles GET /shots. The page reads its dataset query from its
// own URL and forwards it to /api/shots/chart.
func (h *ShotsPageHandler) HandleShots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	http.ServeFileFS(w, r, staticSub(), "shots.html")
}
