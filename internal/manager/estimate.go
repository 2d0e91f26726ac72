package manager

import (
	"context"
	"fmt"

	"llmchatd/internal/prompt"
	"llmchatd/pkg/types"
)

// EstimateRemainingTokens estimates how many tokens of context would be left
// after sending candidate with history:
//
//	max(0, MaxTokens - (tokens(formatted candidate) + DecodeOverhead*len(history)))
//
// The result never increases as history grows. It fails with NotReadyError
// while no session is open.
func (m *Manager) EstimateRemainingTokens(ctx context.Context, candidate string, history []types.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	closed, state := m.closed, m.state
	m.mu.RUnlock()
	if closed {
		return 0, ErrShutdown
	}
	if state != StateReady {
		return 0, &NotReadyError{State: state}
	}

	m.engineMu.Lock()
	defer m.engineMu.Unlock()
	if m.session == nil || m.loaded == nil {
		return 0, &NotReadyError{State: m.currentState(), Reason: "no open session"}
	}
	mdl := m.loaded.Model
	n, err := m.session.CountTokens(prompt.For(mdl).FormatPrompt(candidate, history))
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	remaining := mdl.MaxTokens - (n + mdl.DecodeOverhead*len(history))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
