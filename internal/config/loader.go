package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if LLAVERO_CONFIG is set
//  3. env (prefix LLAVERO_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("LLAVERO_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: LLAVERO_ADDR, LLAVERO_COOLDOWN_MS, ...
	// Map env keys like LLAVERO_COOLDOWN_MS -> cooldown_ms (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("LLAVERO_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "llavero_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.CameraDevice == "" {
		return fmt.Errorf("%w: camera_device must not be empty", ErrInvalidConfig)
	}
	if c.MotionIntervalMS <= 0 {
		return fmt.Errorf("%w: motion_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.MotionFraction <= 0 || c.MotionFraction >= 1 {
		return fmt.Errorf("%w: motion_fraction must be in (0, 1)", ErrInvalidConfig)
	}
	if c.SettleMS <= 0 {
		return fmt.Errorf("%w: settle_ms must be positive", ErrInvalidConfig)
	}
	if c.CooldownMS < 0 {
		return fmt.Errorf("%w: cooldown_ms must not be negative", ErrInvalidConfig)
	}
	if c.EnrollFrames <= 0 {
		return fmt.Errorf("%w: enroll_frames must be positive", ErrInvalidConfig)
	}
	if c.RecognitionBaseURL == "" {
		return fmt.Errorf("%w: recognition_base_url must not be empty", ErrInvalidConfig)
	}
	if c.RecognitionTimeoutMS < 0 {
		return fmt.Errorf("%w: recognition_timeout_ms must not be negative", ErrInvalidConfig)
	}
	if q := c.CaptureJPEGQuality; q <= 0 || q > 100 {
		return fmt.Errorf("%w: capture_jpeg_quality must be in (0, 100]", ErrInvalidConfig)
	}
	if q := c.ProbeJPEGQuality; q <= 0 || q > 100 {
		return fmt.Errorf("%w: probe_jpeg_quality must be in (0, 100]", ErrInvalidConfig)
	}
	return nil
}
