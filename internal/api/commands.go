package api

import (
	"encoding/json"
	"net/http"
)

// CommandRequest is the request body for POST /api/v1/command. It mirrors
// the MQTT command channel payload minus the correlation id, which HTTP
// does not need.
type CommandRequest struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// CommandResponse wraps a successful dispatch result.
type CommandResponse struct {
	Result any `json:"result"`
}

// handleCommand decodes a command envelope and runs it through the dispatch
// pipeline. Failures map onto HTTP statuses via the command error code;
// per-control write failures are part of the result, not an HTTP error.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Method == "" {
		writeBadRequest(w, "method is required")
		return
	}

	result, err := s.adapter.Dispatch(r.Context(), req.Method, req.Params)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CommandResponse{Result: result})
}
