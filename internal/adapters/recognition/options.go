// Package recognition implements the HTTP client for the external face
// recognition backend.
package recognition

import (
	"net/http"
	"time"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the backend base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each backend call. Zero disables the bound so a
// call waits as long as its context allows.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithCaptureQuality sets the JPEG quality for identify and enroll
// uploads (1-100).
func WithCaptureQuality(q int) Option {
	return func(c *Client) {
		if q > 0 && q <= 100 {
			c.captureQuality = q
		}
	}
}

// WithProbeQuality sets the JPEG quality for presence probes (1-100).
func WithProbeQuality(q int) Option {
	return func(c *Client) {
		if q > 0 && q <= 100 {
			c.probeQuality = q
		}
	}
}
