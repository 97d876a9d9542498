package repository

import "errors"

// Sentinel kinds for record store errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidPath = errors.New("invalid record path")
	ErrWrite       = errors.New("record write failed")
	ErrRead        = errors.New("record read failed")
	ErrClosed      = errors.New("record store closed")
)
