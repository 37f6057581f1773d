package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/llavero/llavero/internal/recsim"
	"github.com/llavero/llavero/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr       = ":9090"
	defaultSubjects   = "subject-1:Alice,subject-2:Bob"
	defaultMatch      = 0.6
	defaultFace       = 0.9
	defaultMinLatency = 30 * time.Millisecond
	defaultMaxLatency = 180 * time.Millisecond
)

func main() {
	var (
		addr       = flag.String("addr", defaultAddr, "Listen address")
		subjects   = flag.String("subjects", defaultSubjects, "Comma-separated seed subjects as id:name pairs")
		match      = flag.Float64("match", defaultMatch, "Probability an identify call matches a subject")
		face       = flag.Float64("face", defaultFace, "Probability a detect probe reports a face")
		minLatency = flag.Duration("min-latency", defaultMinLatency, "Lower bound of simulated model latency")
		maxLatency = flag.Duration("max-latency", defaultMaxLatency, "Upper bound of simulated model latency")
		seed       = flag.Int64("seed", 0, "Random seed, 0 uses the current time")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		recsim.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		return
	}

	seedSubjects, err := recsim.ParseSubjects(*subjects)
	if err != nil {
		os.Stderr.WriteString("Invalid subjects: " + err.Error() + "\n")
		return
	}

	config := &recsim.Config{
		Addr:             *addr,
		Subjects:         seedSubjects,
		MatchProbability: *match,
		FaceProbability:  *face,
		MinLatency:       *minLatency,
		MaxLatency:       *maxLatency,
		Seed:             *seed,
		Verbose:          *verbose,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := recsim.NewServer(config).Run(ctx); err != nil {
		os.Stderr.WriteString("Simulator failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
