// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"
)

// EnrollHandler handles enrollment capture requests.
type EnrollHandler struct {
	deps Dependencies
}

// NewEnrollHandler creates a new enrollment handler.
func NewEnrollHandler(deps Dependencies) *EnrollHandler {
	return &EnrollHandler{deps: deps}
}

type enrollResponse struct {
	Status string `json:"status"`
	Held   int    `json:"held"`
}

// HandleCapture handles POST /session/enroll/capture.
func (h *EnrollHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	held, err := h.deps.CaptureEnrollFrame(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollResponse{Status: "captured", Held: held})
}

// HandleRemove handles DELETE /session/enroll/{index}.
func (h *EnrollHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/session/enroll/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", ErrBadRequest)
		return
	}

	held, err := h.deps.RemoveEnrollFrame(r.Context(), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollResponse{Status: "removed", Held: held})
}

// HandleSubmit handles POST /session/enroll/submit.
func (h *EnrollHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if err := h.deps.SubmitEnrollment(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollResponse{Status: "submitted", Held: 0})
}
