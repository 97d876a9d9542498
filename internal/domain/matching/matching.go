// Package matching pairs startups with investors by declared domain.
//
// The filters here are pure: they take a snapshot and return a new slice in
// snapshot order. Matcher adapts them to a live collection subscription.
package matching

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/okian/vivaran/internal/domain/model"
)

// ComputeMatches returns the investors whose interested domains contain
// domain, in the order they appear in investors.
func ComputeMatches(domain model.Domain, investors []model.InvestorProfile) []model.InvestorProfile {
	matched := make([]model.InvestorProfile, 0, len(investors))
	if domain == "" {
		return matched
	}
	for _, inv := range investors {
		if inv.Interested(domain) {
			matched = append(matched, inv)
		}
	}
	return matched
}

// ComputeStartupMatches is the investor-side view: startups whose domain is
// one of domains, in the order they appear in startups.
func ComputeStartupMatches(domains []string, startups []model.StartupProfile) []model.StartupProfile {
	matched := make([]model.StartupProfile, 0, len(startups))
	for _, s := range startups {
		if slices.Contains(domains, string(s.Domain)) {
			matched = append(matched, s)
		}
	}
	return matched
}

// DecodeInvestors converts a snapshot of the investors collection. Records
// that fail to decode are skipped and reported in the returned error list.
func DecodeInvestors(snap model.Snapshot) ([]model.InvestorProfile, []error) {
	out := make([]model.InvestorProfile, 0, len(snap))
	var errs []error
	for _, rec := range snap {
		var inv model.InvestorProfile
		if err := json.Unmarshal(rec.Value, &inv); err != nil {
			errs = append(errs, fmt.Errorf("investor %s: %w", rec.Key, err))
			continue
		}
		inv.ID = rec.Key
		out = append(out, inv)
	}
	return out, errs
}

// DecodeStartups converts a snapshot of the startups collection.
func DecodeStartups(snap model.Snapshot) ([]model.StartupProfile, []error) {
	out := make([]model.StartupProfile, 0, len(snap))
	var errs []error
	for _, rec := range snap {
		var p model.StartupProfile
		if err := json.Unmarshal(rec.Value, &p); err != nil {
			errs = append(errs, fmt.Errorf("startup %s: %w", rec.Key, err))
			continue
		}
		if p.UserID == "" {
			p.UserID = rec.Key
		}
		out = append(out, p)
	}
	return out, errs
}
