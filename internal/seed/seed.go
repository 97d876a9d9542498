// Package seed loads investor profiles from a YAML file into the realtime
// database, so a fresh instance has something to match startups against.
//
// The file looks like:
//
//	investors:
//	  - id: northstar
//	    name: Northstar Ventures
//	    email: deals@northstar.example
//	    interestedDomains: [Technology, Finance]
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
)

// Writer is the slice of the realtime database seeding needs.
type Writer interface {
	WriteRecord(ctx context.Context, path string, value any) error
}

type investor struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Email             string   `yaml:"email"`
	InterestedDomains []string `yaml:"interestedDomains"`
}

type document struct {
	Investors []investor `yaml:"investors"`
}

// Parse decodes and validates a seed document. Every investor needs an id
// usable as a record key, a name and only known domains.
func Parse(r io.Reader) ([]model.InvestorProfile, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrSeedFile, err)
	}

	seen := make(map[string]struct{}, len(doc.Investors))
	out := make([]model.InvestorProfile, 0, len(doc.Investors))
	for i, inv := range doc.Investors {
		id := strings.TrimSpace(inv.ID)
		switch {
		case id == "" || strings.Contains(id, "/"):
			return nil, fmt.Errorf("%w: entry %d: id %q", ErrInvalidInvestor, i, inv.ID)
		case strings.TrimSpace(inv.Name) == "":
			return nil, fmt.Errorf("%w: %s: missing name", ErrInvalidInvestor, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidInvestor, id)
		}
		seen[id] = struct{}{}

		domains := make([]string, 0, len(inv.InterestedDomains))
		for _, d := range inv.InterestedDomains {
			d = strings.TrimSpace(d)
			if !model.Domain(d).Valid() {
				return nil, fmt.Errorf("%w: %s: %w: %q", ErrInvalidInvestor, id, model.ErrInvalidDomain, d)
			}
			domains = append(domains, d)
		}
		out = append(out, model.InvestorProfile{
			ID:                id,
			Name:              strings.TrimSpace(inv.Name),
			Email:             strings.TrimSpace(inv.Email),
			InterestedDomains: domains,
		})
	}
	return out, nil
}

// LoadFile parses the seed file at path.
func LoadFile(path string) ([]model.InvestorProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedFile, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Apply writes each investor to investors/{id} in file order. Existing
// records with the same id are overwritten and keep their position.
func Apply(ctx context.Context, w Writer, investors []model.InvestorProfile, log logger.Logger) (int, error) {
	if log == nil {
		log = logger.Nop()
	}
	for i, inv := range investors {
		if err := w.WriteRecord(ctx, model.Path(model.CollectionInvestors, inv.ID), inv); err != nil {
			return i, fmt.Errorf("seed investor %s: %w", inv.ID, err)
		}
	}
	log.Info(ctx, "investors seeded", logger.Int("count", len(investors)))
	return len(investors), nil
}
