package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("role not allowed")
	ErrNoProfile       = errors.New("startup profile not submitted")
	ErrStreaming       = errors.New("streaming unsupported")
)
