package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/csvmatch/internal/logging"
	"github.com/JonMunkholm/csvmatch/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// recentOnIndex is how many history entries the upload page shows.
const recentOnIndex = 5

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// History is decoration here; the form still works without it.
	recent, err := s.service.History(ctx, recentOnIndex)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to load recent matches", "error", err)
	}

	renderHTML(w, r, http.StatusOK, templates.Index(templates.IndexData{
		MaxFileSize: s.cfg.Match.MaxFileSize,
		OutputName:  s.cfg.Match.OutputName,
		Recent:      recent,
	}))
}

// handleHistoryPage renders the match history.
func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.History(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	renderHTML(w, r, http.StatusOK, templates.HistoryPage(records))
}

// handleListHistory returns recent matches as JSON, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.History(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, records)
}

// handleGetHistory returns a single history entry.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetMatch(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, rec)
}

// handleStatus returns the current state of the job limiter.
// Used for monitoring and to check if the server can accept more matches.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.LimiterStatus())
}

// handleHealth reports liveness and, when registered, the health probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.health(ctx); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			status["status"] = "unavailable"
			writeJSON(w, r, status)
			return
		}
	}

	writeJSON(w, r, status)
}

// renderHTML writes c with the given status. Render errors are logged since
// headers are already sent.
func renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
