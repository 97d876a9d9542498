package storage

import "errors"

// Sentinel kinds for local storage errors.
var (
	ErrInvalidNamespace = errors.New("storage: invalid namespace")
	ErrPersist          = errors.New("storage: persist failed")
)
