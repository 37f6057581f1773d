// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/llavero/llavero/internal/domain/types"
)

// defaultRecentLimit applies when GET /identifications has no limit.
const defaultRecentLimit = 20

// IdentificationsHandler serves the identification history.
type IdentificationsHandler struct {
	deps Dependencies
}

// NewIdentificationsHandler creates a new identifications handler.
func NewIdentificationsHandler(deps Dependencies) *IdentificationsHandler {
	return &IdentificationsHandler{deps: deps}
}

type identificationsResponse struct {
	Identifications []types.IdentificationRecord `json:"identifications"`
	Count           int                          `json:"count"`
}

// HandleList handles GET /identifications?limit=N, newest first.
func (h *IdentificationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	recs, err := h.deps.RecentIdentifications(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []types.IdentificationRecord{}
	}
	writeJSON(w, http.StatusOK, identificationsResponse{Identifications: recs, Count: len(recs)})
}

// HandleLast handles GET /identifications/last, the newest match of the
// open identify session.
func (h *IdentificationsHandler) HandleLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	last := h.deps.LastMatch()
	if last == nil {
		writeError(w, http.StatusNotFound, "no_match_yet", errors.New("no identification yet"))
		return
	}
	writeJSON(w, http.StatusOK, last)
}
