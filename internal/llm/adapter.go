// Package llm wraps the native model runtime: loading weights, opening
// conversational sessions, streaming generation, and token counting.
//
// The in-process go-llama.cpp runtime is compiled with `-tags=llama`
// (llama.go, llama_cgo.go). Without the tag a stub runtime is used whose Load
// always fails with ErrRuntimeUnavailable, keeping default builds CGO-free.
package llm

import (
	"context"

	"llmchatd/pkg/types"
)

// Runtime loads model weights into an Engine.
type Runtime interface {
	// Load reads the weights at path. Failures are *LoadError.
	Load(path string, opts LoadOptions) (Engine, error)
}

// Engine is loaded model weights able to open sessions.
type Engine interface {
	// OpenSession creates a fresh session bound to sampling parameters.
	// Failures are *SessionError.
	OpenSession(params Sampling) (Session, error)
	// Close releases the weights. Closing twice is a no-op.
	Close() error
}

// Session holds sampling parameters and the implicit turn history of one
// conversation against an Engine.
type Session interface {
	// Generate appends prompt to the turn history and streams generated text
	// to onToken until the model finishes. It returns when ctx is canceled or
	// onToken returns an error. Text already passed to onToken is never
	// retracted.
	Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error)
	// CountTokens tokenizes text with the session vocabulary without changing
	// the session.
	CountTokens(text string) (int, error)
	// Close releases the session. Closing twice is a no-op.
	Close() error
}

// LoadOptions configures weight loading.
type LoadOptions struct {
	Backend   types.Backend
	MaxTokens int
	Threads   int
	// GPULayers is the number of layers offloaded when Backend is gpu.
	GPULayers int
}

// Sampling captures per-session generation parameters.
type Sampling struct {
	Temperature float32
	TopK        int
	TopP        float32
	MaxTokens   int
	Seed        int
}

// SamplingFor returns the sampling parameters configured for m.
func SamplingFor(m types.Model) Sampling {
	return Sampling{Temperature: m.Temperature, TopK: m.TopK, TopP: m.TopP, MaxTokens: m.MaxTokens}
}

// FinalResult summarizes a finished generation.
type FinalResult struct {
	Content      string
	Tokens       int
	FinishReason string
}
