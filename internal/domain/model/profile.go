package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Domain is the sector a startup works in.
type Domain string

// Known domains.
const (
	DomainTechnology Domain = "Technology"
	DomainHealthcare Domain = "Healthcare"
	DomainFinance    Domain = "Finance"
	DomainEducation  Domain = "Education"
	DomainECommerce  Domain = "E-commerce"
)

// Domains lists every domain in display order.
var Domains = []Domain{DomainTechnology, DomainHealthcare, DomainFinance, DomainEducation, DomainECommerce}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool { return slices.Contains(Domains, d) }

// Stage is how far along a startup is.
type Stage string

// Known stages.
const (
	StageIdea          Stage = "Idea"
	StageMVP           Stage = "MVP"
	StageEarlyTraction Stage = "Early Traction"
	StageGrowth        Stage = "Growth"
)

// Stages lists every stage in display order.
var Stages = []Stage{StageIdea, StageMVP, StageEarlyTraction, StageGrowth}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return slices.Contains(Stages, s) }

// StartupProfile is stored at startups/{uid}. Field names on the wire match
// the records the site has always written.
type StartupProfile struct {
	StartupName   string    `json:"startupName"`
	Domain        Domain    `json:"domain"`
	Description   string    `json:"description"`
	FundingNeeded string    `json:"fundingNeeded"`
	TeamSize      string    `json:"teamSize"`
	Stage         Stage     `json:"stage"`
	Location      string    `json:"location"`
	Website       string    `json:"website,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// Validate checks the submitted form. Website is the only optional field.
func (p StartupProfile) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"startupName", p.StartupName},
		{"domain", string(p.Domain)},
		{"description", p.Description},
		{"fundingNeeded", p.FundingNeeded},
		{"teamSize", p.TeamSize},
		{"stage", string(p.Stage)},
		{"location", p.Location},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if !p.Domain.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, p.Domain)
	}
	if !p.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, p.Stage)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(p.TeamSize)); err != nil || n < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidTeamSize, p.TeamSize)
	}
	return nil
}

// InvestorProfile is stored at investors/{uid}. ID is the record key and is
// not part of the stored value.
type InvestorProfile struct {
	ID                string   `json:"-"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	InterestedDomains []string `json:"interestedDomains"`
}

// Interested reports whether d is among the investor's interested domains.
func (i InvestorProfile) Interested(d Domain) bool {
	return slices.Contains(i.InterestedDomains, string(d))
}

// ContactMessage is a note left through the contact page.
type ContactMessage struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate requires every field but the subject.
func (m ContactMessage) Validate() error {
	for name, v := range map[string]string{"name": m.Name, "email": m.Email, "message": m.Message} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return nil
}
