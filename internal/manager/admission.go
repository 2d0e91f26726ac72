package manager

import "context"

// tryBeginGeneration takes the in-flight slot without waiting. Returns a
// release func, or false when another generation (or a load or reset) holds
// the slot.
func (m *Manager) tryBeginGeneration() (func(), bool) {
	select {
	case m.genCh <- struct{}{}:
		return m.releaseSlot, true
	default:
		return nil, false
	}
}

// acquireSlot waits for the in-flight slot. Reset, load and unload use it to
// wait out a running generation.
func (m *Manager) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case m.genCh <- struct{}{}:
		return m.releaseSlot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) releaseSlot() { <-m.genCh }

// generating reports whether the slot is held.
func (m *Manager) generating() bool { return len(m.genCh) > 0 }
