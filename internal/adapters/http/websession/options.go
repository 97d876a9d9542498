package websession

import (
	"time"

	"github.com/okian/vivaran/pkg/logger"
)

// Option configures a Registry.
type Option func(*Registry)

// WithIdleTimeout sets how long an untouched browser session is kept.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithSecureCookies marks the session cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(r *Registry) {
		r.secure = secure
	}
}

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRelease registers fn to run after an evicted or closed session is
// torn down.
func WithRelease(fn ReleaseFunc) Option {
	return func(r *Registry) {
		r.release = fn
	}
}

// WithLogger sets the registry logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}
