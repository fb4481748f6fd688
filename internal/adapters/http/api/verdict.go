package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/fillcheck/internal/orchestrator"
)

// VerdictDependencies exposes the most recent validation verdict.
type VerdictDependencies interface {
	LastVerdict(ctx context.Context) (*orchestrator.Verdict, bool)
}

// VerdictHandler serves the last verdict and its per-phase records.
type VerdictHandler struct {
	deps VerdictDependencies
}

// NewVerdictHandler creates a new verdict handler.
func NewVerdictHandler(deps VerdictDependencies) *VerdictHandler {
	return &VerdictHandler{deps: deps}
}

// HandleGetVerdict handles GET /verdict requests.
func (h *VerdictHandler) HandleGetVerdict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	v, ok := h.deps.LastVerdict(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", ErrNoVerdict)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleGetPhase handles GET /verdict/phases/{phase} requests.
func (h *VerdictHandler) HandleGetPhase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/verdict/phases/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	v, ok := h.deps.LastVerdict(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", ErrNoVerdict)
		return
	}
	for _, p := range v.Phases {
		if p.Summary.Phase == name {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: phase %q did not run", ErrNotFound, name))
}
