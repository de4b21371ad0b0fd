package site

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/speciesdex/internal/chart"
	"github.com/okian/speciesdex/pkg/logger"
)

// defaultChartWidth is used by the page before the browser reports the
// container width.
const defaultChartWidth = 960

func (s *Server) handleSpeedPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireSession(w, r); !ok {
		return
	}
	snap := s.deps.Snapshot()
	view := speedView{
		Shown:    len(snap.Records),
		Accepted: snap.Accepted,
		Dropped:  snap.Dropped,
		Width:    defaultChartWidth,
	}
	s.render(w, r, http.StatusOK, pageSpeed, page{Nav: s.nav(true), Title: "Species Speed", Data: view})
}

// handleChartSVG renders the chart for ?width=N, the pixel width of the
// container. Missing or invalid widths fall back to the minimum layout.
func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	width, err := strconv.Atoi(r.URL.Query().Get("width"))
	if err != nil || width < 0 {
		width = 0
	}

	var buf bytes.Buffer
	err = s.deps.RenderChart(&buf, width)
	switch {
	case errors.Is(err, chart.ErrEmptyDataset):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.logger.Error(r.Context(), "chart render failed", logger.Int("width", width), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleInteractive(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.deps.RenderInteractive(&buf)
	switch {
	case errors.Is(err, chart.ErrEmptyDataset):
		s.renderError(w, r, false, http.StatusServiceUnavailable, "The speed dataset has not been loaded yet.")
		return
	case err != nil:
		s.logger.Error(r.Context(), "interactive chart render failed", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
