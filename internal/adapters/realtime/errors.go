package realtime

import "errors"

// Sentinel kinds for realtime database errors.
var (
	ErrWrite  = errors.New("realtime: write failed")
	ErrRead   = errors.New("realtime: read failed")
	ErrClosed = errors.New("realtime: database closed")
)

// WriteError reports a failed record write. It matches ErrWrite and unwraps
// to the underlying cause.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return "realtime: write " + e.Path + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrWrite.
func (e *WriteError) Is(target error) bool { return target == ErrWrite }
