package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/vivaran/internal/domain/matching"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/internal/domain/profile"
)

// handleMatchStream handles GET /api/startup/matches/stream. Each investors
// snapshot, and each change to the caller's own domain, produces one
// "matches" server-sent event with the full list.
func (s *Server) handleMatchStream(w http.ResponseWriter, r *http.Request) {
	flow, err := s.loadFlow(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if flow.State() != profile.Submitted {
		s.writeFailure(w, r, ErrNoProfile)
		return
	}
	_, id, err := signedIn(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeFailure(w, r, ErrStreaming)
		return
	}

	// Only the newest list matters; a slow reader skips intermediate ones.
	updates := make(chan []model.InvestorProfile, 1)
	m := matching.NewMatcher(s.db, flow.Profile().Domain, func(list []model.InvestorProfile) {
		for {
			select {
			case updates <- list:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}, matching.WithLogger(s.log))
	defer m.Close()
	if err := m.Start(r.Context()); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := m.Follow(r.Context(), id.ID); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case list := <-updates:
			payload, err := json.Marshal(entries(list))
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: matches\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
