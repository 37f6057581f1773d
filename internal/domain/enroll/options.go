// Package enroll accumulates capture frames for one subject's enrollment.
package enroll

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithRequired sets how many frames a submission needs.
func WithRequired(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.required = n
		}
	}
}
