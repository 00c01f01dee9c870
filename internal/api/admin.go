package api

import (
	"fmt"
	"net/http"
)

// ─── POST /api/reminders/run ──────────────────────────────────────────────────

// handleRunReminders queues an immediate birthday reminder scan. The scan runs
// in the background; a second request while one is pending is a no-op.
func (s *Server) handleRunReminders(w http.ResponseWriter, r *http.Request) {
	if s.reminders == nil {
		respondErr(w, http.StatusServiceUnavailable, "birthday reminders are not configured")
		return
	}
	queued := s.reminders.Trigger()
	s.logger.Info("reminders: scan requested", "queued", queued, logField(r))
	respond(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

// ─── POST /api/uniques/refresh ────────────────────────────────────────────────

// handleRefreshUniques rebuilds the curated unique pool from the catalog.
func (s *Server) handleRefreshUniques(w http.ResponseWriter, r *http.Request) {
	if s.uniques == nil {
		respondErr(w, http.StatusServiceUnavailable, "curated pool is not configured")
		return
	}
	products := s.uniques.Refresh(r.Context())
	s.logger.Info("uniques: pool refreshed", "count", len(products), logField(r))
	respond(w, http.StatusOK, map[string]int{"count": len(products)})
}

// ─── DELETE /api/uniques ──────────────────────────────────────────────────────

func (s *Server) handleClearUniques(w http.ResponseWriter, r *http.Request) {
	if s.uniques == nil {
		respondErr(w, http.StatusServiceUnavailable, "curated pool is not configured")
		return
	}
	if err := s.uniques.Clear(r.Context()); err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("clear uniques: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
