package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/llavero/llavero/internal/adapters/camera"
	"github.com/llavero/llavero/internal/adapters/http/api"
	"github.com/llavero/llavero/internal/adapters/recognition"
	service "github.com/llavero/llavero/internal/app"
	"github.com/llavero/llavero/internal/config"
	"github.com/llavero/llavero/pkg/logger"
	"github.com/llavero/llavero/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	reco := recognition.NewClient(
		recognition.WithBaseURL(cfg.RecognitionBaseURL),
		recognition.WithTimeout(time.Duration(cfg.RecognitionTimeoutMS)*time.Millisecond),
		recognition.WithCaptureQuality(cfg.CaptureJPEGQuality),
		recognition.WithProbeQuality(cfg.ProbeJPEGQuality),
	)

	// Create the kiosk service with configuration options
	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithSourceFactory(sourceFactory(cfg)),
		service.WithRecognitionClient(reco),
		service.WithMotionInterval(time.Duration(cfg.MotionIntervalMS)*time.Millisecond),
		service.WithPixelThreshold(cfg.MotionPixelThreshold),
		service.WithMotionFraction(cfg.MotionFraction),
		service.WithSettle(time.Duration(cfg.SettleMS)*time.Millisecond),
		service.WithCooldown(time.Duration(cfg.CooldownMS)*time.Millisecond),
		service.WithPresenceInterval(time.Duration(cfg.PresenceIntervalMS)*time.Millisecond),
		service.WithEnrollFrames(cfg.EnrollFrames),
		service.WithFrameQueueSize(cfg.FrameQueueSize),
		service.WithJournalSize(cfg.JournalSize),
		service.WithMaxRecentLimit(cfg.MaxRecentLimit),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// sourceFactory builds the per-session camera source. The special
// device name "synthetic" selects the generated test pattern so the
// kiosk can run without camera hardware.
func sourceFactory(cfg *config.Config) func() camera.Source {
	if cfg.CameraDevice == "synthetic" {
		return func() camera.Source {
			return camera.NewSynthetic(cfg.CameraMinWidth, cfg.CameraMinHeight)
		}
	}
	return func() camera.Source {
		return camera.NewDevice(cfg.CameraDevice,
			camera.WithIdealResolution(cfg.CameraIdealWidth, cfg.CameraIdealHeight),
			camera.WithMinResolution(cfg.CameraMinWidth, cfg.CameraMinHeight),
		)
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	// Get current stats from the service
	stats := svc.GetStats()

	if open, ok := stats["sessionOpen"].(bool); ok {
		metrics.UpdateSessionActive(open)
	}

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if journalCount, ok := stats["journalCount"].(int); ok {
		metrics.UpdateJournalSize(journalCount)
	}

	if held, ok := stats["enrollHeld"].(int); ok {
		metrics.UpdateEnrollFramesHeld(held)
	}
}
