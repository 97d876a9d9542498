package session

// RegistrationError reports a failed register call. Err is the provider cause.
type RegistrationError struct {
	Email string
	Err   error
}

func (e *RegistrationError) Error() string {
	return "registration failed for " + e.Email + ": " + e.Err.Error()
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// AuthenticationError reports a failed authenticate call.
type AuthenticationError struct {
	Email string
	Err   error
}

func (e *AuthenticationError) Error() string {
	return "authentication failed for " + e.Email + ": " + e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error { return e.Err }
