package manager

import (
	"context"

	"llmchatd/internal/llm"
)

// ResetConversationState discards the engine-side turn history by closing the
// session and opening a fresh one on the same engine. It waits for an
// in-flight generation to finish first. If the new session cannot be opened
// the engine is released too and the manager enters the error state.
func (m *Manager) ResetConversationState(ctx context.Context) error {
	if m.isClosed() {
		return ErrShutdown
	}
	release, err := m.acquireSlot(ctx)
	if err != nil {
		return err
	}
	defer release()
	m.engineMu.Lock()
	defer m.engineMu.Unlock()

	if m.engine == nil || m.loaded == nil {
		return &NotReadyError{State: m.currentState(), Reason: "nothing loaded"}
	}
	mdl := m.loaded.Model
	if m.session != nil {
		llm.CloseQuietly(m.log, "session", m.session)
		m.session = nil
	}
	sess, err := m.engine.OpenSession(llm.SamplingFor(mdl))
	if err != nil {
		m.closeEngineLocked()
		if !llm.IsSessionError(err) {
			err = &llm.SessionError{Err: err}
		}
		m.setState(StateError, err.Error())
		m.publish(Event{Name: "reset_error", ModelID: mdl.ID, State: StateError, Fields: map[string]any{"error": err.Error()}})
		m.log.Error().Err(err).Str("model", mdl.ID).Msg("manager event=reset_error")
		return err
	}
	m.session = sess
	m.mu.Lock()
	m.resets++
	m.mu.Unlock()
	resetsTotal.Inc()
	m.publish(Event{Name: "session_reset", ModelID: mdl.ID, State: m.currentState()})
	m.log.Info().Str("model", mdl.ID).Msg("manager event=session_reset")
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
