package model

import "errors"

// Sentinel kinds for domain validation errors.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidRole     = errors.New("invalid role")
	ErrInvalidDomain   = errors.New("invalid domain")
	ErrInvalidStage    = errors.New("invalid stage")
	ErrInvalidTeamSize = errors.New("team size must be a whole number")
)
