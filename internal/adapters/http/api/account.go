package api

import (
	"net/http"
	"strings"

	"github.com/okian/vivaran/internal/adapters/http/websession"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
)

type registerRequest struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	Role              string   `json:"role"`
	Name              string   `json:"name"`
	InterestedDomains []string `json:"interestedDomains,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	SignedIn bool   `json:"signedIn"`
	UID      string `json:"uid,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

func sessionView(e *websession.Entry) sessionResponse {
	var out sessionResponse
	if id, ok := e.Session.Current(); ok {
		out.SignedIn = true
		out.UID = id.ID
		out.Email = id.Email
	}
	if role, ok := e.Session.Role(); ok {
		out.Role = string(role)
	}
	return out
}

// handleRegister handles POST /api/auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	e, _ := websession.FromContext(r.Context())
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	fields := map[string]any{"name": strings.TrimSpace(req.Name)}
	if role == model.RoleInvestor {
		fields["interestedDomains"] = req.InterestedDomains
	}
	if _, err := e.Session.Register(r.Context(), strings.TrimSpace(req.Email), req.Password, role, fields); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.sessions.SyncToken(w, e)
	writeJSON(w, http.StatusCreated, sessionView(e))
}

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	e, _ := websession.FromContext(r.Context())
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if _, err := e.Session.Authenticate(r.Context(), strings.TrimSpace(req.Email), req.Password); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.sessions.SyncToken(w, e)
	writeJSON(w, http.StatusOK, sessionView(e))
}

// handleLogout handles POST /api/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	e, _ := websession.FromContext(r.Context())
	if err := e.Session.EndSession(r.Context()); err != nil {
		s.log.Warn(r.Context(), "sign out failed", logger.Error(err))
	}
	s.sessions.SyncToken(w, e)
	w.WriteHeader(http.StatusNoContent)
}

// handleLogoutAll handles POST /api/auth/logout-all.
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	e, id, err := signedIn(r)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	revoked := e.Auth.SignOutEverywhere(r.Context())
	if err := e.Session.EndSession(r.Context()); err != nil {
		s.log.Warn(r.Context(), "sign out failed", logger.Error(err))
	}
	s.sessions.SyncToken(w, e)
	s.log.Info(r.Context(), "account signed out everywhere", logger.String("uid", id.ID), logger.Int("sessions", revoked))
	writeJSON(w, http.StatusOK, map[string]int{"revoked": revoked})
}

// handleSession handles GET /api/session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	e, _ := websession.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionView(e))
}
