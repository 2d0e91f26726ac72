package manager

import (
	"errors"

	"llmchatd/internal/llm"
)

// ErrShutdown is returned by every operation once Shutdown has been called.
var ErrShutdown = errors.New("manager: shut down")

// NotReadyError reports that no usable session exists: nothing is selected,
// the model is still loading, or the last load failed.
type NotReadyError struct {
	State  State
	Reason string
}

func (e *NotReadyError) Error() string {
	if e.Reason != "" {
		return "model not ready (" + string(e.State) + "): " + e.Reason
	}
	return "model not ready (" + string(e.State) + ")"
}

// IsNotReady reports whether err indicates the session is not ready (503).
func IsNotReady(err error) bool {
	var e *NotReadyError
	return errors.As(err, &e) || errors.Is(err, ErrShutdown)
}

// SessionBusyError is returned when a generation is already in flight.
type SessionBusyError struct{ ModelID string }

func (e *SessionBusyError) Error() string { return "session busy: " + e.ModelID }

// IsBusy reports whether err indicates an in-flight generation (429).
func IsBusy(err error) bool {
	var e *SessionBusyError
	return errors.As(err, &e)
}

// GenerationError is the terminal error of a stream. Partial holds the
// visible text streamed before the failure.
type GenerationError struct {
	Err     error
	Partial string
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGeneration reports whether err is a stream failure.
func IsGeneration(err error) bool {
	var e *GenerationError
	return errors.As(err, &e)
}

// ErrModelNotFound returns an error when a requested model id is not known.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// IsDependencyUnavailable reports whether err indicates the inference runtime
// is missing from this build, so the HTTP layer can return 503.
func IsDependencyUnavailable(err error) bool {
	return errors.Is(err, llm.ErrRuntimeUnavailable)
}
