// Package metrics provides Prometheus metrics for the llavero kiosk service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Frame drop reasons recorded on the frames_dropped_total counter.
const (
	DropReasonCooldown = "cooldown"
	DropReasonInFlight = "in_flight"
	DropReasonQueue    = "queue_full"
)

// Manager manages all Prometheus metrics for the llavero service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Perception loop metrics
	framesGrabbed  prometheus.Counter
	frameGrabErrs  prometheus.Counter
	motionTicks    prometheus.Counter
	motionDetected prometheus.Counter
	captureEvents  prometheus.Counter
	framesDropped  *prometheus.CounterVec

	// Identification metrics
	identifyAttempts *prometheus.CounterVec
	identifyLatency  prometheus.Histogram
	cooldownActive   prometheus.Gauge

	// Enrollment metrics
	presenceProbes    *prometheus.CounterVec
	enrollSubmissions *prometheus.CounterVec
	enrollFramesHeld  prometheus.Gauge

	// Session and queue health
	sessionActive prometheus.Gauge
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	journalSize   prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "llavero",
		subsystem:        "kiosk",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Perception loop metrics
	m.framesGrabbed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_grabbed_total",
		Help:      "Total number of frames grabbed from the camera",
	})

	m.frameGrabErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_grab_errors_total",
		Help:      "Total number of failed frame grabs",
	})

	m.motionTicks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "motion_ticks_total",
		Help:      "Total number of motion detection ticks",
	})

	m.motionDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "motion_detected_total",
		Help:      "Total number of ticks that reported significant motion",
	})

	m.captureEvents = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "capture_events_total",
		Help:      "Total number of frames emitted by the capture state machine",
	})

	m.framesDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_dropped_total",
		Help:      "Total number of captured frames dropped before dispatch",
	}, []string{"reason"})

	// Identification metrics
	m.identifyAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "identify_attempts_total",
		Help:      "Total number of identification attempts by outcome",
	}, []string{"outcome"})

	m.identifyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "identify_latency_milliseconds",
		Help:      "Histogram of identification round-trip latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cooldownActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cooldown_active",
		Help:      "Whether a post-match cooldown window is currently open (0/1)",
	})

	// Enrollment metrics
	m.presenceProbes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "presence_probes_total",
		Help:      "Total number of face presence probes by result",
	}, []string{"result"})

	m.enrollSubmissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enroll_submissions_total",
		Help:      "Total number of enrollment submissions by result",
	}, []string{"result"})

	m.enrollFramesHeld = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enroll_frames_held",
		Help:      "Number of frames currently held by the enrollment collector",
	})

	// Session and queue health
	m.sessionActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_active",
		Help:      "Whether a camera session is currently open (0/1)",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_queue_size",
		Help:      "Current number of frames waiting for dispatch",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_queue_capacity",
		Help:      "Configured capacity of the frame dispatch queue",
	})

	m.journalSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_size",
		Help:      "Number of identifications retained in the journal",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	// Error tracking
	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component and type",
	}, []string{"component", "error_type"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "Total number of HTTP errors by endpoint",
	}, []string{"endpoint", "method", "error_type"})

	// System metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordFrameGrabbed increments the grabbed frames counter.
func RecordFrameGrabbed() {
	globalManager.framesGrabbed.Inc()
}

// RecordFrameGrabError increments the failed grab counter.
func RecordFrameGrabError() {
	globalManager.frameGrabErrs.Inc()
}

// RecordMotionTick increments the motion tick counter.
func RecordMotionTick() {
	globalManager.motionTicks.Inc()
}

// RecordMotionDetected increments the motion detected counter.
func RecordMotionDetected() {
	globalManager.motionDetected.Inc()
}

// RecordCaptureEvent increments the capture event counter.
func RecordCaptureEvent() {
	globalManager.captureEvents.Inc()
}

// RecordFrameDropped increments the dropped frames counter for a reason.
func RecordFrameDropped(reason string) {
	globalManager.framesDropped.WithLabelValues(reason).Inc()
}

// RecordIdentifyAttempt increments the attempts counter for an outcome
// (matched, no_match, failed).
func RecordIdentifyAttempt(outcome string) {
	globalManager.identifyAttempts.WithLabelValues(outcome).Inc()
}

// RecordIdentifyLatency records identification round-trip latency in milliseconds.
func RecordIdentifyLatency(latencyMs float64) {
	globalManager.identifyLatency.Observe(latencyMs)
}

// UpdateCooldownActive sets the cooldown gauge.
func UpdateCooldownActive(active bool) {
	if active {
		globalManager.cooldownActive.Set(1)
	} else {
		globalManager.cooldownActive.Set(0)
	}
}

// RecordPresenceProbe increments the presence probe counter for a result
// (face, no_face, error).
func RecordPresenceProbe(result string) {
	globalManager.presenceProbes.WithLabelValues(result).Inc()
}

// RecordEnrollSubmission increments the enrollment submission counter for a
// result (ok, error).
func RecordEnrollSubmission(result string) {
	globalManager.enrollSubmissions.WithLabelValues(result).Inc()
}

// UpdateEnrollFramesHeld sets the enrollment collector size gauge.
func UpdateEnrollFramesHeld(count int) {
	globalManager.enrollFramesHeld.Set(float64(count))
}

// UpdateSessionActive sets the session gauge.
func UpdateSessionActive(active bool) {
	if active {
		globalManager.sessionActive.Set(1)
	} else {
		globalManager.sessionActive.Set(0)
	}
}

// UpdateQueueSize sets the current frame queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the frame queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateJournalSize sets the journal size gauge.
func UpdateJournalSize(count int) {
	globalManager.journalSize.Set(float64(count))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent increments the component error counter.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint increments the endpoint error counter.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
