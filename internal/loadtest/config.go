package loadtest

import (
	"time"

	"github.com/okian/vivaran/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the site
	Founders   int           // Startup accounts to register and profile
	Investors  int           // Investor accounts to register first
	Workers    int           // Concurrent simulated browsers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Where generated profiles are written, empty to skip
	Seed       uint64        // Random seed, zero picks one
}

// Founder is one simulated startup browser.
type Founder struct {
	Email    string               `json:"email"`
	Password string               `json:"password"`
	Profile  model.StartupProfile `json:"profile"`
}

// Investor is one simulated investor account.
type Investor struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	Name              string   `json:"name"`
	InterestedDomains []string `json:"interestedDomains"`
}

// Stats holds run statistics.
type Stats struct {
	InvestorsRegistered int
	FoundersRegistered  int
	ProfilesSubmitted   int
	MatchesChecked      int
	Mismatches          int
	Failures            int
	StartTime           time.Time
	Duration            time.Duration
}
