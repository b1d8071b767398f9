package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-av/internal/adapter"
)

// StatusResponse is the body of GET /api/v1/status: the core's own status
// snapshot plus the bridge's operational counters.
type StatusResponse struct {
	Core    adapter.Status `json:"core"`
	Stats   adapter.Stats  `json:"stats"`
	Version string         `json:"version"`
}

// handleStatus reports the core platform snapshot and adapter counters.
// A disconnected core is a valid answer, not an error.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.adapter.Status(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Core:    status,
		Stats:   s.adapter.Stats(),
		Version: s.version,
	})
}

// handleChangeGroups lists the live change groups with their member
// controls and auto-poll rates.
func (s *Server) handleChangeGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.adapter.ChangeGroups()
	writeJSON(w, http.StatusOK, map[string]any{
		"change_groups": groups,
		"count":         len(groups),
	})
}

// handleClearCaches drops the control index, the response cache and the
// breaker's failure count. The next read rebuilds them from the core; use
// after redeploying a design to the processor.
func (s *Server) handleClearCaches(w http.ResponseWriter, r *http.Request) {
	s.adapter.ClearCaches()
	s.logger.Info("caches cleared via API",
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}
