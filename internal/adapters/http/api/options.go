package api

import (
	"time"

	"github.com/okian/vivaran/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithEnforcedRoles restricts the startup endpoints to startups.
func WithEnforcedRoles(enforce bool) Option {
	return func(s *Server) {
		s.enforceRoles = enforce
	}
}

// WithLogger sets the API logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source for created records.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}
