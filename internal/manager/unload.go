package manager

import (
	"context"
)

// Unload waits for any in-flight generation, then releases the engine. The
// selection is kept so a later EnsureReady reloads it.
func (m *Manager) Unload(ctx context.Context) error {
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
	m.publish(Event{Name: "unload_start", State: m.currentState()})
	m.closeEngineLocked()
	m.setState(StateUnloaded, "")
	m.publish(Event{Name: "unload_done", State: StateUnloaded})
	return nil
}

// Shutdown cancels any in-flight stream, waits for the engine call to
// return, and releases the engine. Every later operation fails with
// ErrShutdown. Calling it again is a no-op.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	active := m.active
	m.mu.Unlock()

	if active != nil {
		active.Cancel()
	}
	m.baseCancel()
	// Later holders check closed after taking the slot.
	release, _ := m.acquireSlot(context.Background())
	defer release()
	m.engineMu.Lock()
	defer m.engineMu.Unlock()
	m.closeEngineLocked()
	m.setState(StateUnloaded, "")
	m.publish(Event{Name: "shutdown", State: StateUnloaded})
	m.log.Info().Msg("manager event=shutdown")
}
