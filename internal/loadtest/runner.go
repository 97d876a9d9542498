// Package loadtest drives a running site through its JSON API the way many
// browsers would: investors sign up, founders sign up and submit profiles,
// and every founder's match list is checked against the investor list.
package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

type counters struct {
	investors, founders, profiles, checked, mismatches, failures atomic.Int64
}

// Run executes the load test and returns its statistics. The error reports
// the first failure; stats are filled in either way.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if log == nil {
		log = logger.Nop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	stats := &Stats{StartTime: time.Now()}
	var c counters
	defer func() {
		stats.InvestorsRegistered = int(c.investors.Load())
		stats.FoundersRegistered = int(c.founders.Load())
		stats.ProfilesSubmitted = int(c.profiles.Load())
		stats.MatchesChecked = int(c.checked.Load())
		stats.Mismatches = int(c.mismatches.Load())
		stats.Failures = int(c.failures.Load())
		stats.Duration = time.Since(stats.StartTime)
	}()

	log.Info(ctx, "starting load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("founders", cfg.Founders),
		logger.Int("investors", cfg.Investors),
		logger.Int("workers", workers),
	)

	if err := checkHealth(ctx, cfg); err != nil {
		return stats, err
	}

	gen := newGenerator(cfg.Seed)
	investors := gen.investors(cfg.Investors)
	founders := gen.founders(cfg.Founders)
	if cfg.OutputFile != "" {
		if err := saveGenerated(cfg.OutputFile, investors, founders); err != nil {
			log.Warn(ctx, "could not save generated accounts", logger.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, inv := range investors {
		g.Go(func() error {
			if err := registerInvestor(gctx, cfg, inv); err != nil {
				c.failures.Add(1)
				return err
			}
			c.investors.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("register investors: %w", err)
	}
	log.Info(ctx, "investors registered", logger.Int("count", len(investors)))

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	results := make([]founderResult, len(founders))
	for i, f := range founders {
		g.Go(func() error {
			res, err := runFounder(gctx, cfg, f, &c)
			if err != nil {
				c.failures.Add(1)
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("run founders: %w", err)
	}
	log.Info(ctx, "founders done", logger.Int("count", len(founders)))

	if len(results) == 0 {
		return stats, nil
	}
	if err := verify(ctx, results, &c, log); err != nil {
		return stats, err
	}
	log.Info(ctx, "load test completed", logger.Int("matchesChecked", int(c.checked.Load())))
	return stats, nil
}

func checkHealth(ctx context.Context, cfg *Config) error {
	b, err := newBrowser(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return err
	}
	// healthz answers with metrics text, not JSON
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

func registerInvestor(ctx context.Context, cfg *Config, inv Investor) error {
	b, err := newBrowser(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return err
	}
	body := map[string]any{
		"email":             inv.Email,
		"password":          inv.Password,
		"role":              string(model.RoleInvestor),
		"name":              inv.Name,
		"interestedDomains": inv.InterestedDomains,
	}
	return b.do(ctx, http.MethodPost, "/api/auth/register", body, nil, http.StatusCreated)
}

// founderResult is what one founder saw at the end of its run.
type founderResult struct {
	founder   Founder
	matches   investorList
	investors investorList
}

func runFounder(ctx context.Context, cfg *Config, f Founder, c *counters) (founderResult, error) {
	res := founderResult{founder: f}
	b, err := newBrowser(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return res, err
	}
	register := map[string]any{
		"email":    f.Email,
		"password": f.Password,
		"role":     string(model.RoleStartup),
		"name":     f.Profile.StartupName,
	}
	if err := b.do(ctx, http.MethodPost, "/api/auth/register", register, nil, http.StatusCreated); err != nil {
		return res, err
	}
	c.founders.Add(1)

	if err := b.do(ctx, http.MethodPut, "/api/startup/profile", f.Profile, nil, http.StatusOK); err != nil {
		return res, err
	}
	c.profiles.Add(1)

	if err := b.do(ctx, http.MethodGet, "/api/startup/matches", nil, &res.matches, http.StatusOK); err != nil {
		return res, err
	}
	if err := b.do(ctx, http.MethodGet, "/api/investors", nil, &res.investors, http.StatusOK); err != nil {
		return res, err
	}
	return res, nil
}

func saveGenerated(path string, investors []Investor, founders []Founder) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(struct {
		Investors []Investor `json:"investors"`
		Founders  []Founder  `json:"founders"`
	}{investors, founders}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, filePermission)
}
