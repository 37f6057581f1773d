package recsim

import "time"

// Config holds configuration for the simulated recognition backend
type Config struct {
	Addr             string        // Listen address
	Subjects         []Subject     // Subjects enrolled at startup
	MatchProbability float64       // Chance an identify call matches a subject
	FaceProbability  float64       // Chance a detect probe sees a face
	MinLatency       time.Duration // Lower bound of simulated model latency
	MaxLatency       time.Duration // Upper bound of simulated model latency
	Seed             int64         // Random seed, 0 means time-based
	Verbose          bool          // Enable verbose logging
}

// Subject is one enrollable identity.
type Subject struct {
	ID   string `json:"subject_id"`
	Name string `json:"name"`
}

// Stats holds request counters for the simulator.
type Stats struct {
	DetectCalls   int64
	IdentifyCalls int64
	Matches       int64
	EnrollCalls   int64
	StartTime     time.Time
}
