package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleHealth reports process liveness
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEnvironments returns the deployment state of every environment
func (s *Server) handleEnvironments(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")

	states, err := s.orch.EnvironmentStates(r.Context(), project)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

// handleHistory returns the unexpired run records of one environment. Log
// lines were redacted before persistence, so they are safe to serve as-is.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	environment := chi.URLParam(r, "environment")

	records, err := s.orch.History(r.Context(), project, environment)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleDeleteGuard returns the delete guard verdict for a project
func (s *Server) handleDeleteGuard(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")

	result, err := s.orch.EvaluateProjectDeleteGuard(r.Context(), project)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError writes a structured error response and logs the failure
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed: %v", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
