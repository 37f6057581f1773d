// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load(ctx) layers an optional YAML file and LLAVERO_ env vars on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CameraDevice is the V4L2 device path. "synthetic" selects the
	// built-in synthetic source for machines without a camera.
	CameraDevice string `koanf:"camera_device"`

	// CameraIdealWidth/Height is the resolution requested first.
	CameraIdealWidth  int `koanf:"camera_ideal_width"`
	CameraIdealHeight int `koanf:"camera_ideal_height"`

	// CameraMinWidth/Height is the fallback resolution.
	CameraMinWidth  int `koanf:"camera_min_width"`
	CameraMinHeight int `koanf:"camera_min_height"`

	// MotionIntervalMS sets the motion detection tick period.
	MotionIntervalMS int `koanf:"motion_interval_ms"`

	// MotionPixelThreshold is the per-pixel mean channel difference
	// (0-255) above which a pixel counts as changed.
	MotionPixelThreshold int `koanf:"motion_pixel_threshold"`

	// MotionFraction is the changed-pixel ratio above which motion is
	// declared.
	MotionFraction float64 `koanf:"motion_fraction"`

	// SettleMS is the quiet window required after motion before a
	// capture fires.
	SettleMS int `koanf:"settle_ms"`

	// CooldownMS suppresses repeat identifications after a match.
	CooldownMS int `koanf:"cooldown_ms"`

	// PresenceIntervalMS sets the enrollment face-check tick period.
	PresenceIntervalMS int `koanf:"presence_interval_ms"`

	// EnrollFrames is how many photos one enrollment needs.
	EnrollFrames int `koanf:"enroll_frames"`

	// FrameQueueSize bounds the capture frame queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// RecognitionBaseURL locates the face recognition backend.
	RecognitionBaseURL string `koanf:"recognition_base_url"`

	// RecognitionTimeoutMS bounds each backend call. Zero disables the
	// bound so calls wait as long as their context allows.
	RecognitionTimeoutMS int `koanf:"recognition_timeout_ms"`

	// CaptureJPEGQuality and ProbeJPEGQuality set upload quality (1-100).
	CaptureJPEGQuality int `koanf:"capture_jpeg_quality"`
	ProbeJPEGQuality   int `koanf:"probe_jpeg_quality"`

	// JournalSize bounds the identification history.
	JournalSize int `koanf:"journal_size"`

	// MaxRecentLimit caps GET /identifications?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use and
// is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		CameraDevice:         "/dev/video0",
		CameraIdealWidth:     1280,
		CameraIdealHeight:    720,
		CameraMinWidth:       640,
		CameraMinHeight:      480,
		MotionIntervalMS:     100,
		MotionPixelThreshold: 40,
		MotionFraction:       0.07,
		SettleMS:             200,
		CooldownMS:           5000,
		PresenceIntervalMS:   1500,
		EnrollFrames:         3,
		FrameQueueSize:       1,
		RecognitionBaseURL:   "http://localhost:9090",
		RecognitionTimeoutMS: 10_000,
		CaptureJPEGQuality:   95,
		ProbeJPEGQuality:     80,
		JournalSize:          100,
		MaxRecentLimit:       100,
	}
	return c
}
