package manager

import (
	"context"

	"llmchatd/internal/prompt"
	"llmchatd/pkg/types"
)

// Generate starts streaming a reply to text given the prior history. It
// never loads a model: it fails with NotReadyError unless EnsureReady has
// succeeded for the current selection, and with SessionBusyError while
// another stream holds the session.
//
// The caller must drain Events or call Cancel. The session is released once
// the engine call has returned and the stream has delivered its terminal
// event or been cancelled. Cancelling ctx cancels the stream.
func (m *Manager) Generate(ctx context.Context, text string, history []types.Message) (*Stream, error) {
	m.mu.RLock()
	closed, state := m.closed, m.state
	m.mu.RUnlock()
	if closed {
		return nil, ErrShutdown
	}
	if state != StateReady {
		return nil, &NotReadyError{State: state}
	}
	release, ok := m.tryBeginGeneration()
	if !ok {
		// A load or reset also holds the slot.
		if st := m.currentState(); st != StateReady {
			return nil, &NotReadyError{State: st}
		}
		id := ""
		if sel, ok := m.Selected(); ok {
			id = sel.ID
		}
		return nil, &SessionBusyError{ModelID: id}
	}

	m.engineMu.Lock()
	sess, loaded := m.session, m.loaded
	m.engineMu.Unlock()
	sel, _ := m.Selected()
	if sess == nil || loaded == nil || loaded.Model.ID != sel.ID || m.currentState() != StateReady {
		release()
		return nil, &NotReadyError{State: m.currentState(), Reason: "no open session"}
	}

	f := prompt.For(loaded.Model)
	input := f.FormatPrompt(text, history)
	s := newStream(ctx, f)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.cancel()
		release()
		return nil, ErrShutdown
	}
	m.active = s
	m.mu.Unlock()
	generationInflight.Inc()
	m.publish(Event{Name: "generate_start", ModelID: loaded.Model.ID, State: StateReady})
	m.log.Debug().Str("model", loaded.Model.ID).Int("history", len(history)).Msg("manager event=generate_start")

	go func() {
		defer close(s.settled)
		defer release()
		defer generationInflight.Dec()
		_, err := sess.Generate(s.ctx, input, s.push)
		s.finish(err)
		<-s.forwarded
		s.cancel()

		m.mu.Lock()
		if m.active == s {
			m.active = nil
		}
		m.mu.Unlock()
		m.finishGeneration(loaded.Model.ID, s)
	}()
	return s, nil
}

func (m *Manager) finishGeneration(modelID string, s *Stream) {
	err := s.Err()
	outcome := "done"
	switch {
	case err == nil:
	case IsGeneration(err):
		outcome = "error"
	default:
		outcome = "cancelled"
	}
	generationsTotal.WithLabelValues(outcome).Inc()
	fields := map[string]any{"outcome": outcome}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.publish(Event{Name: "generate_" + outcome, ModelID: modelID, State: m.currentState(), Fields: fields})
	ev := m.log.Debug()
	if outcome == "error" {
		ev = m.log.Warn().Err(err)
	}
	ev.Str("model", modelID).Int("deltas", s.deltaCount()).Msg("manager event=generate_" + outcome)
}
