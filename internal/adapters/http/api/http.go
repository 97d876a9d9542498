// Package api serves the JSON API next to the rendered pages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/vivaran/internal/adapters/auth"
	"github.com/okian/vivaran/internal/adapters/http/websession"
	"github.com/okian/vivaran/internal/adapters/realtime"
	"github.com/okian/vivaran/internal/domain/matching"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/internal/domain/profile"
	"github.com/okian/vivaran/internal/domain/session"
	"github.com/okian/vivaran/pkg/logger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Database is the realtime database as the API uses it.
type Database interface {
	session.Database
	matching.Source
	Snapshot(ctx context.Context, collection string) (model.Snapshot, error)
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	db           Database
	sessions     *websession.Registry
	enforceRoles bool
	log          logger.Logger
	now          func() time.Time

	healthHandler *HealthHandler
	statsHandler  *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(db Database, sessions *websession.Registry, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		db:            db,
		sessions:      sessions,
		log:           logger.Nop(),
		now:           time.Now,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, s.sessions.Middleware(MetricsMiddleware(h, endpoint)))
	}
	route("POST /api/auth/register", "api_register", s.handleRegister)
	route("POST /api/auth/login", "api_login", s.handleLogin)
	route("POST /api/auth/logout", "api_logout", s.handleLogout)
	route("POST /api/auth/logout-all", "api_logout_all", s.handleLogoutAll)
	route("GET /api/session", "api_session", s.handleSession)
	route("GET /api/startup/profile", "api_profile", s.handleGetProfile)
	route("PUT /api/startup/profile", "api_profile", s.handlePutProfile)
	route("GET /api/startup/matches", "api_matches", s.handleMatches)
	route("GET /api/startup/matches/stream", "api_matches_stream", s.handleMatchStream)
	route("GET /api/investors", "api_investors", s.handleInvestors)
	route("POST /api/contact", "api_contact", s.handleContact)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status code and error code.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict, "email_in_use"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, profile.ErrNoIdentity):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrNoProfile):
		return http.StatusNotFound, "profile_not_found"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, model.ErrInvalidRole),
		errors.Is(err, model.ErrMissingField),
		errors.Is(err, model.ErrInvalidDomain),
		errors.Is(err, model.ErrInvalidStage),
		errors.Is(err, model.ErrInvalidTeamSize):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, realtime.ErrWrite):
		return http.StatusBadGateway, "write_failed"
	case errors.Is(err, realtime.ErrRead):
		return http.StatusBadGateway, "read_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// signedIn returns the browser entry and its identity, or ErrUnauthenticated.
func signedIn(r *http.Request) (*websession.Entry, model.Identity, error) {
	e, ok := websession.FromContext(r.Context())
	if !ok {
		return nil, model.Identity{}, ErrUnauthenticated
	}
	id, ok := e.Session.Current()
	if !ok {
		return e, model.Identity{}, ErrUnauthenticated
	}
	return e, id, nil
}

// startupOnly applies the dashboard role rule to the startup endpoints.
func (s *Server) startupOnly(e *websession.Entry) error {
	if !s.enforceRoles {
		return nil
	}
	if role, ok := e.Session.Role(); ok && role != model.RoleStartup {
		return ErrForbidden
	}
	return nil
}
