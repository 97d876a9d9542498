package loadtest

import "errors"

var (
	// ErrUnhealthy is returned when the site does not answer its health check.
	ErrUnhealthy = errors.New("site unhealthy")
	// ErrUnexpectedStatus is returned when an API call answers with the wrong status.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMismatch is returned when a match list disagrees with the investor list.
	ErrMismatch = errors.New("match list mismatch")
)
