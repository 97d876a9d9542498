package auth

import (
	"errors"
	"fmt"
)

// ErrAuthentication is the kind shared by every provider failure.
var ErrAuthentication = errors.New("authentication error")

// Specific provider failures. All satisfy errors.Is(err, ErrAuthentication).
var (
	ErrEmailInUse         = fmt.Errorf("%w: email already in use", ErrAuthentication)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", ErrAuthentication)
	ErrWeakPassword       = fmt.Errorf("%w: password must be at least %d characters", ErrAuthentication, minPasswordLength)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
	ErrTokenInvalid       = fmt.Errorf("%w: invalid or expired token", ErrAuthentication)
)
