package loadtest

import (
	"context"
	"os"

	"github.com/okian/vivaran/pkg/logger"
)

// ShowHelp prints usage information for the load test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Vivaran Load Test
=================

Registers investors, then founders who submit profiles, through the JSON API,
and checks every founder's match list against the investor list.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string        Base URL of the site (default "http://localhost:8080")
  -founders int      Startup accounts to create (default 200)
  -investors int     Investor accounts to create first (default 20)
  -workers int       Concurrent browsers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write generated accounts to this JSON file
  -seed uint         Random seed for repeatable runs
  -help              Show this help message
`)
}

// LogStats writes the final statistics.
func LogStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.FoundersRegistered) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("investorsRegistered", stats.InvestorsRegistered),
		logger.Int("foundersRegistered", stats.FoundersRegistered),
		logger.Int("profilesSubmitted", stats.ProfilesSubmitted),
		logger.Int("matchesChecked", stats.MatchesChecked),
		logger.Int("mismatches", stats.Mismatches),
		logger.Int("failures", stats.Failures),
		logger.Duration("duration", stats.Duration),
		logger.Any("foundersPerSecond", perSecond),
	)
}
