package recsim

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/llavero/llavero/pkg/logger"
)

// Default simulator behavior constants.
const (
	maxUploadBytes  = 32 << 20
	defaultDistance = 0.35
	distanceJitter  = 0.15
)

// Server simulates the recognition backend over HTTP.
type Server struct {
	config *Config
	store  *store
	rng    *rand.Rand
	stats  Stats
	log    logger.Logger
}

// NewServer creates a simulator from config.
func NewServer(config *Config) *Server {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Server{
		config: config,
		store:  newStore(config.Subjects),
		rng:    rand.New(rand.NewSource(seed)),
		stats:  Stats{StartTime: time.Now()},
		log:    logger.Get().Named("recsim"),
	}
}

// Run serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/face/detect", s.handleDetect)
	mux.HandleFunc("/api/face/identify", s.handleIdentify)
	mux.HandleFunc("/api/face/enroll", s.handleEnroll)
	mux.HandleFunc("/api/face/descriptors/", s.handleDescriptors)

	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info(ctx, "simulator listening",
		logger.String("addr", s.config.Addr),
		logger.Int("subjects", len(s.config.Subjects)),
		logger.Float64("matchProbability", s.config.MatchProbability))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down simulator: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("simulator server: %w", err)
		}
		return nil
	}
}

// envelope mirrors the backend's uniform response wrapper.
type envelope struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data, Message: message})
}

// simulateLatency sleeps a random interval inside the configured range.
func (s *Server) simulateLatency() {
	if s.config.MaxLatency <= 0 {
		return
	}
	span := s.config.MaxLatency - s.config.MinLatency
	d := s.config.MinLatency
	if span > 0 {
		d += time.Duration(s.rng.Int63n(int64(span)))
	}
	time.Sleep(d)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	atomic.AddInt64(&s.stats.DetectCalls, 1)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "expected multipart image upload")
		return
	}
	if _, _, err := r.FormFile("image"); err != nil {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "missing image field")
		return
	}

	s.simulateLatency()

	faces := 0
	if s.rng.Float64() < s.config.FaceProbability {
		faces = 1
	}
	if s.config.Verbose {
		s.log.Debug(r.Context(), "detect probe", logger.Int("faces", faces))
	}
	s.writeEnvelope(w, http.StatusOK, map[string]int{"face_count": faces}, "ok")
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	atomic.AddInt64(&s.stats.IdentifyCalls, 1)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "expected multipart image upload")
		return
	}
	if _, _, err := r.FormFile("image"); err != nil {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "missing image field")
		return
	}

	s.simulateLatency()

	payload := map[string]interface{}{"matched": false}
	if s.rng.Float64() < s.config.MatchProbability {
		if sub, descriptors, ok := s.store.pick(s.rng.Int()); ok {
			atomic.AddInt64(&s.stats.Matches, 1)
			payload = map[string]interface{}{
				"matched":           true,
				"subject_id":        sub.ID,
				"name":              sub.Name,
				"distance":          defaultDistance + s.rng.Float64()*distanceJitter,
				"match_count":       1 + s.rng.Intn(descriptors),
				"total_descriptors": descriptors,
			}
		}
	}
	if s.config.Verbose {
		s.log.Debug(r.Context(), "identify", logger.Any("matched", payload["matched"]))
	}
	s.writeEnvelope(w, http.StatusOK, payload, "ok")
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	atomic.AddInt64(&s.stats.EnrollCalls, 1)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "expected multipart image upload")
		return
	}
	subjectID := r.FormValue("subject_id")
	if subjectID == "" {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "missing subject_id field")
		return
	}
	images := r.MultipartForm.File["images"]
	if len(images) == 0 {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "missing images field")
		return
	}

	s.simulateLatency()

	total := s.store.add(subjectID, subjectID, len(images))
	s.log.Info(r.Context(), "enrolled subject",
		logger.String("subjectID", subjectID),
		logger.Int("frames", len(images)),
		logger.Int("totalDescriptors", total))
	s.writeEnvelope(w, http.StatusOK, map[string]interface{}{
		"subject_id": subjectID,
		"count":      total,
	}, "enrolled")
}

// handleDescriptors serves GET/DELETE /api/face/descriptors/{subject}
// and DELETE /api/face/descriptors/{subject}/{index}.
func (s *Server) handleDescriptors(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/face/descriptors/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleListDescriptors(w, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		s.handleClearDescriptors(w, parts[0])
	case len(parts) == 2 && r.Method == http.MethodDelete:
		s.handleDeleteDescriptor(w, parts[0], parts[1])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleListDescriptors(w http.ResponseWriter, subjectID string) {
	count, ok := s.store.count(subjectID)
	if !ok {
		s.writeEnvelope(w, http.StatusNotFound, nil, "unknown subject")
		return
	}
	descriptors := make([]json.RawMessage, count)
	for i := range descriptors {
		descriptors[i] = json.RawMessage(`{"index":` + strconv.Itoa(i) + `}`)
	}
	s.writeEnvelope(w, http.StatusOK, map[string]interface{}{
		"count":       count,
		"descriptors": descriptors,
	}, "ok")
}

func (s *Server) handleClearDescriptors(w http.ResponseWriter, subjectID string) {
	if !s.store.clear(subjectID) {
		s.writeEnvelope(w, http.StatusNotFound, nil, "unknown subject")
		return
	}
	s.writeEnvelope(w, http.StatusOK, map[string]bool{"cleared": true}, "ok")
}

func (s *Server) handleDeleteDescriptor(w http.ResponseWriter, subjectID, rawIndex string) {
	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "invalid descriptor index")
		return
	}
	if !s.store.remove(subjectID, index) {
		s.writeEnvelope(w, http.StatusNotFound, nil, "unknown subject or index")
		return
	}
	s.writeEnvelope(w, http.StatusOK, map[string]bool{"removed": true}, "ok")
}
