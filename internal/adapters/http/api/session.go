// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"image/jpeg"
	"net/http"
	"strings"
	"time"
)

// previewJPEGQuality keeps the preview light; it is a UI aid, not a
// capture frame.
const previewJPEGQuality = 80

// SessionHandler handles camera session lifecycle requests.
type SessionHandler struct {
	deps  Dependencies
	stats StatsProvider
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies, stats StatsProvider) *SessionHandler {
	return &SessionHandler{deps: deps, stats: stats}
}

// sessionRequest mirrors the schema for POST /session.
type sessionRequest struct {
	Mode      string `json:"mode"`
	SubjectID string `json:"subject_id"`
}

func (s sessionRequest) validate() error {
	if strings.TrimSpace(s.Mode) == "" {
		return errors.New("missing mode")
	}
	return nil
}

type sessionResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode,omitempty"`
}

// sessionStatusResponse mirrors the schema for GET /session.
type sessionStatusResponse struct {
	Open           bool       `json:"open"`
	Mode           string     `json:"mode,omitempty"`
	CaptureState   string     `json:"capture_state,omitempty"`
	Errored        bool       `json:"errored,omitempty"`
	PresenceReady  bool       `json:"presence_ready,omitempty"`
	PresenceStatus string     `json:"presence_status,omitempty"`
	EnrollHeld     int        `json:"enroll_held,omitempty"`
	EnrollReady    bool       `json:"enroll_ready,omitempty"`
	LastOutcome    string     `json:"last_outcome,omitempty"`
	CoolingUntil   *time.Time `json:"cooling_until,omitempty"`
}

// HandleSession handles POST /session (open), GET /session (status) and
// DELETE /session (close).
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleOpen(w, r)
	case http.MethodGet:
		h.handleStatus(w, r)
	case http.MethodDelete:
		h.handleClose(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleStatus reports the open session's state from the service stats.
func (h *SessionHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.GetStats()

	var resp sessionStatusResponse
	resp.Open, _ = stats["sessionOpen"].(bool)
	if !resp.Open {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Mode, _ = stats["mode"].(string)
	resp.CaptureState, _ = stats["captureState"].(string)
	resp.Errored, _ = stats["sessionErrored"].(bool)
	resp.PresenceReady, _ = stats["presenceReady"].(bool)
	resp.PresenceStatus, _ = stats["presenceStatus"].(string)
	resp.EnrollHeld, _ = stats["enrollHeld"].(int)
	resp.EnrollReady, _ = stats["enrollReady"].(bool)
	resp.LastOutcome, _ = stats["lastOutcome"].(string)
	if until, ok := stats["coolingUntil"].(time.Time); ok {
		resp.CoolingUntil = &until
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if err := h.deps.StartSession(r.Context(), req.Mode, req.SubjectID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Status: "open", Mode: req.Mode})
}

func (h *SessionHandler) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.StopSession(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Status: "closed"})
}

// HandlePreview handles GET /session/preview, serving the latest frame
// as a JPEG.
func (h *SessionHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	frame, err := h.deps.PreviewFrame()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	if err := jpeg.Encode(w, frame.RGBA(), &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}
