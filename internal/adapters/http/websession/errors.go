package websession

import "errors"

// Sentinel kinds for browser session errors.
var (
	ErrNoSession = errors.New("websession: no browser session in request context")
	ErrStorage   = errors.New("websession: local storage unavailable")
)
