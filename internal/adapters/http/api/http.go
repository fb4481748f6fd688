// Package api exposes the read-only status surface: metrics, service
// statistics and the most recent verdict.
package api

import (
	"encoding/json"
	"net/http"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider
	VerdictDependencies
}

// Server wires HTTP routes for the status API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	verdictHandler *VerdictHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		verdictHandler: NewVerdictHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/verdict", MetricsMiddleware(s.verdictHandler.HandleGetVerdict, "verdict"))
	mux.HandleFunc("/verdict/phases/", MetricsMiddleware(s.verdictHandler.HandleGetPhase, "verdict_phase"))
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
