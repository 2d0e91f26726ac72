package manager

import (
	"time"

	"llmchatd/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	var loaded *LoadedModel
	if m.loaded != nil {
		l := *m.loaded
		loaded = &l
	}
	return Snapshot{
		State:      m.state,
		Selected:   copyModel(m.selected),
		Loaded:     loaded,
		Generating: m.generating(),
		Err:        m.err,
	}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snapshotLocked()
	resp := types.StatusResponse{
		State:         string(snap.State),
		Generating:    snap.Generating,
		Error:         snap.Err,
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
		LoadsTotal:    m.loads,
		ClosesTotal:   m.closes,
		ResetsTotal:   m.resets,
	}
	if snap.Selected != nil {
		resp.Selected = snap.Selected.ID
	}
	if snap.Loaded != nil {
		resp.Loaded = snap.Loaded.Model.ID
		resp.LoadedPath = snap.Loaded.Path
	}
	return resp
}
