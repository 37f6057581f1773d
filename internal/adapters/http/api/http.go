// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/llavero/llavero/internal/adapters/camera"
	service "github.com/llavero/llavero/internal/app"
	"github.com/llavero/llavero/internal/domain/enroll"
	"github.com/llavero/llavero/internal/domain/model"
	"github.com/llavero/llavero/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Session lifecycle.
	StartSession(ctx context.Context, mode, subjectID string) error
	StopSession(ctx context.Context) error
	PreviewFrame() (*model.Frame, error)

	// Enrollment actions, valid only in enroll mode.
	CaptureEnrollFrame(ctx context.Context) (int, error)
	RemoveEnrollFrame(ctx context.Context, index int) (int, error)
	SubmitEnrollment(ctx context.Context) error

	// Identification history.
	RecentIdentifications(ctx context.Context, limit int) ([]types.IdentificationRecord, error)
	LastMatch() *types.IdentificationRecord
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	sessionHandler         *SessionHandler
	enrollHandler          *EnrollHandler
	identificationsHandler *IdentificationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:          NewHealthHandler(),
		statsHandler:           NewStatsHandler(statsProvider),
		sessionHandler:         NewSessionHandler(deps, statsProvider),
		enrollHandler:          NewEnrollHandler(deps),
		identificationsHandler: NewIdentificationsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/session", MetricsMiddleware(s.sessionHandler.HandleSession, "session"))
	mux.HandleFunc("/session/preview", MetricsMiddleware(s.sessionHandler.HandlePreview, "preview"))
	mux.HandleFunc("/session/enroll/capture", MetricsMiddleware(s.enrollHandler.HandleCapture, "enroll_capture"))
	mux.HandleFunc("/session/enroll/submit", MetricsMiddleware(s.enrollHandler.HandleSubmit, "enroll_submit"))
	mux.HandleFunc("/session/enroll/", MetricsMiddleware(s.enrollHandler.HandleRemove, "enroll_remove"))
	mux.HandleFunc("/identifications", MetricsMiddleware(s.identificationsHandler.HandleList, "identifications"))
	mux.HandleFunc("/identifications/last", MetricsMiddleware(s.identificationsHandler.HandleLast, "identifications_last"))
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

// writeDomainError translates service sentinels into status codes so
// handlers share one mapping.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, "invalid_mode", err)
	case errors.Is(err, service.ErrWrongMode):
		writeError(w, http.StatusBadRequest, "wrong_mode", err)
	case errors.Is(err, service.ErrSessionActive):
		writeError(w, http.StatusConflict, "session_active", err)
	case errors.Is(err, service.ErrNoSession):
		writeError(w, http.StatusConflict, "no_session", err)
	case errors.Is(err, service.ErrNoFaceDetected):
		writeError(w, http.StatusConflict, "no_face", err)
	case errors.Is(err, service.ErrNoFrame):
		writeError(w, http.StatusServiceUnavailable, "no_frame", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err)
	case errors.Is(err, camera.ErrCameraUnavailable):
		writeError(w, http.StatusServiceUnavailable, "camera_unavailable", err)
	case errors.Is(err, camera.ErrBusy):
		writeError(w, http.StatusConflict, "camera_busy", err)
	case errors.Is(err, enroll.ErrSetFull):
		writeError(w, http.StatusConflict, "set_full", err)
	case errors.Is(err, enroll.ErrInsufficientFrames):
		writeError(w, http.StatusConflict, "insufficient_frames", err)
	case errors.Is(err, enroll.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, "index_out_of_range", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
