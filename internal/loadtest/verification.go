package loadtest

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/vivaran/internal/domain/matching"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
)

// verify recomputes each founder's matches from the investor list that
// founder fetched and compares ids and order.
func verify(ctx context.Context, results []founderResult, c *counters, log logger.Logger) error {
	var first error
	for _, res := range results {
		c.checked.Add(1)
		want := ids(matching.ComputeMatches(res.founder.Profile.Domain, profiles(res.investors)))
		got := make([]string, 0, len(res.matches.Investors))
		for _, e := range res.matches.Investors {
			got = append(got, e.ID)
		}
		if slices.Equal(want, got) {
			continue
		}
		c.mismatches.Add(1)
		log.Warn(ctx, "match list mismatch",
			logger.String("founder", res.founder.Email),
			logger.String("domain", string(res.founder.Profile.Domain)),
			logger.Any("want", want),
			logger.Any("got", got),
		)
		if first == nil {
			first = fmt.Errorf("%w: %s", ErrMismatch, res.founder.Email)
		}
	}
	return first
}

func profiles(list investorList) []model.InvestorProfile {
	out := make([]model.InvestorProfile, 0, len(list.Investors))
	for _, e := range list.Investors {
		out = append(out, model.InvestorProfile{ID: e.ID, Name: e.Name, InterestedDomains: e.InterestedDomains})
	}
	return out
}

func ids(in []model.InvestorProfile) []string {
	out := make([]string, 0, len(in))
	for _, inv := range in {
		out = append(out, inv.ID)
	}
	return out
}
