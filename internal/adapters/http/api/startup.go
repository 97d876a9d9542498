package api

import (
	"fmt"
	"net/http"

	"github.com/okian/vivaran/internal/domain/matching"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/internal/domain/profile"
	"github.com/okian/vivaran/pkg/logger"
)

type profileResponse struct {
	State   string               `json:"state"`
	Profile model.StartupProfile `json:"profile"`
}

type investorEntry struct {
	ID string `json:"id"`
	model.InvestorProfile
}

type investorsResponse struct {
	Investors []investorEntry `json:"investors"`
}

func entries(in []model.InvestorProfile) investorsResponse {
	out := make([]investorEntry, 0, len(in))
	for _, inv := range in {
		out = append(out, investorEntry{ID: inv.ID, InvestorProfile: inv})
	}
	return investorsResponse{Investors: out}
}

// loadFlow returns the signed-in startup's profile flow after Load.
func (s *Server) loadFlow(r *http.Request) (*profile.Flow, error) {
	e, id, err := signedIn(r)
	if err != nil {
		return nil, err
	}
	if err := s.startupOnly(e); err != nil {
		return nil, err
	}
	flow := profile.New(s.db, id, profile.WithLogger(s.log), profile.WithClock(s.now))
	if err := flow.Load(r.Context()); err != nil {
		return nil, err
	}
	return flow, nil
}

// handleGetProfile handles GET /api/startup/profile.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	flow, err := s.loadFlow(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{State: flow.State().String(), Profile: flow.Profile()})
}

// handlePutProfile handles PUT /api/startup/profile. Submitting again
// overwrites the stored profile.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	flow, err := s.loadFlow(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	var form model.StartupProfile
	if err := decodeJSON(r, &form); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	form.UserID, form.Email = "", ""
	if err := flow.Submit(r.Context(), form); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{State: flow.State().String(), Profile: flow.Profile()})
}

// handleMatches handles GET /api/startup/matches.
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	flow, err := s.loadFlow(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if flow.State() != profile.Submitted {
		s.writeFailure(w, r, ErrNoProfile)
		return
	}
	investors, err := s.investors(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries(matching.ComputeMatches(flow.Profile().Domain, investors)))
}

// handleInvestors handles GET /api/investors: every investor, in arrival order.
func (s *Server) handleInvestors(w http.ResponseWriter, r *http.Request) {
	if _, _, err := signedIn(r); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	investors, err := s.investors(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries(investors))
}

func (s *Server) investors(r *http.Request) ([]model.InvestorProfile, error) {
	snap, err := s.db.Snapshot(r.Context(), model.CollectionInvestors)
	if err != nil {
		return nil, fmt.Errorf("fetch investors: %w", err)
	}
	investors, bad := matching.DecodeInvestors(snap)
	for _, err := range bad {
		s.log.Warn(r.Context(), "skipping unreadable investor record", logger.Error(err))
	}
	return investors, nil
}
