package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/vivaran/internal/loadtest"
	"github.com/okian/vivaran/pkg/logger"
)

// Default configuration constants.
const (
	defaultFounders    = 200
	defaultInvestors   = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the site")
		founders   = flag.Int("founders", defaultFounders, "Startup accounts to create")
		investors  = flag.Int("investors", defaultInvestors, "Investor accounts to create first")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent browsers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write generated accounts to this JSON file")
		seed       = flag.Uint64("seed", 0, "Random seed for repeatable runs")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	stats, err := loadtest.Run(ctx, &loadtest.Config{
		BaseURL:    *baseURL,
		Founders:   *founders,
		Investors:  *investors,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Seed:       *seed,
	}, log)
	loadtest.LogStats(ctx, log, stats)
	if err != nil {
		log.Error(ctx, "load test failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
