package loadtest

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/vivaran/internal/domain/model"
)

const password = "loadtest-secret"

var (
	locations = []string{"Bengaluru", "Mumbai", "Pune", "Delhi", "Hyderabad", "Chennai"}
	fundings  = []string{"$50,000", "$250,000", "$1,000,000", "$3,000,000"}
)

// generator builds accounts and profiles from one seeded source, so a run
// can be repeated.
type generator struct {
	rnd *rand.Rand
	run string
}

func newGenerator(seed uint64) *generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &generator{rnd: rand.New(rand.NewPCG(seed, seed>>1)), run: uuid.NewString()[:8]}
}

func (g *generator) email(kind string, i int) string {
	return fmt.Sprintf("%s-%s-%d@loadtest.example", kind, g.run, i)
}

func (g *generator) domain() model.Domain {
	return model.Domains[g.rnd.IntN(len(model.Domains))]
}

func (g *generator) investors(n int) []Investor {
	out := make([]Investor, 0, n)
	for i := range n {
		var domains []string
		for _, d := range model.Domains {
			if g.rnd.IntN(3) == 0 {
				domains = append(domains, string(d))
			}
		}
		if len(domains) == 0 {
			domains = []string{string(g.domain())}
		}
		out = append(out, Investor{
			Email:             g.email("investor", i),
			Password:          password,
			Name:              fmt.Sprintf("Fund %d", i+1),
			InterestedDomains: domains,
		})
	}
	return out
}

func (g *generator) founders(n int) []Founder {
	out := make([]Founder, 0, n)
	for i := range n {
		out = append(out, Founder{
			Email:    g.email("founder", i),
			Password: password,
			Profile: model.StartupProfile{
				StartupName:   fmt.Sprintf("Startup %d", i+1),
				Domain:        g.domain(),
				Description:   "Generated by the load test.",
				FundingNeeded: fundings[g.rnd.IntN(len(fundings))],
				TeamSize:      strconv.Itoa(1 + g.rnd.IntN(40)),
				Stage:         model.Stages[g.rnd.IntN(len(model.Stages))],
				Location:      locations[g.rnd.IntN(len(locations))],
			},
		})
	}
	return out
}
