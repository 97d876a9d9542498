package site

import (
	"time"

	"github.com/okian/vivaran/pkg/logger"
)

// Option configures a Site.
type Option func(*Site)

// WithEnforcedRoles keeps each dashboard to its own role.
func WithEnforcedRoles(enforce bool) Option {
	return func(s *Site) {
		s.enforceRoles = enforce
	}
}

// WithLogger sets the site logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Site) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for contact messages.
func WithClock(now func() time.Time) Option {
	return func(s *Site) {
		if now != nil {
			s.now = now
		}
	}
}
