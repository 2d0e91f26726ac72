package llm

import (
	"errors"
	"fmt"
)

// ErrRuntimeUnavailable is returned when no native runtime was built in.
var ErrRuntimeUnavailable = errors.New("llama support not built (missing 'llama' build tag)")

// ErrClosed is returned when a closed engine or session is used.
var ErrClosed = errors.New("llm: already closed")

// LoadError reports a failure to load model weights: missing or corrupt file,
// or a configuration the runtime rejects.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SessionError reports a failure to create a session.
type SessionError struct{ Err error }

func (e *SessionError) Error() string { return "create session: " + e.Err.Error() }

func (e *SessionError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsSessionError reports whether err is or wraps a *SessionError.
func IsSessionError(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}
