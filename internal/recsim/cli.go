package recsim

import (
	"fmt"
	"os"
	"strings"
)

// ShowHelp prints usage information for the recognition simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Llavero Recognition Simulator
=============================

A standalone stand-in for the face recognition backend, useful for
developing the kiosk without camera hardware or a trained model.

Usage:
  go run cmd/recsim/main.go [options]

Options:
  -addr string
        Listen address (default ":9090")
  -subjects string
        Comma-separated seed subjects as id:name pairs
        (default "subject-1:Alice,subject-2:Bob")
  -match float
        Probability an identify call matches a subject (default 0.6)
  -face float
        Probability a detect probe reports a face (default 0.9)
  -min-latency duration
        Lower bound of simulated model latency (default 30ms)
  -max-latency duration
        Upper bound of simulated model latency (default 180ms)
  -seed int
        Random seed, 0 uses the current time
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with defaults
  go run cmd/recsim/main.go

  # Always match, no latency
  go run cmd/recsim/main.go -match 1 -max-latency 0

  # Deterministic run for scripted tests
  go run cmd/recsim/main.go -seed 42
`)
}

// ParseSubjects parses a comma-separated list of id:name pairs.
func ParseSubjects(raw string) ([]Subject, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var subjects []Subject
	for _, pair := range strings.Split(raw, ",") {
		id, name, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found || id == "" || name == "" {
			return nil, fmt.Errorf("invalid subject %q, expected id:name", pair)
		}
		subjects = append(subjects, Subject{ID: id, Name: name})
	}
	return subjects, nil
}
