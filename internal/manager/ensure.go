package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"llmchatd/internal/llm"
	"llmchatd/pkg/types"
)

// EnsureReady makes sure a session for the selected model is open, loading
// the weights if needed. If a different model is loaded it is closed first.
// Concurrent callers share one load; ctx only bounds how long this caller
// waits for it. If the selection changes while a load runs, the newly
// selected model is loaded next.
func (m *Manager) EnsureReady(ctx context.Context) error {
	for {
		m.mu.RLock()
		closed, state, sel := m.closed, m.state, copyModel(m.selected)
		var loaded LoadedModel
		if m.loaded != nil {
			loaded = *m.loaded
		}
		m.mu.RUnlock()
		if closed {
			return ErrShutdown
		}
		if sel == nil {
			return &NotReadyError{State: state, Reason: "no model selected"}
		}
		path := m.files.LocalPath(*sel)
		if state == StateReady && loaded.Model == *sel && loaded.Path == path {
			return nil
		}
		key := sel.ID + "\x00" + path
		ch := m.loadGroup.DoChan(key, func() (any, error) {
			return nil, m.load(*sel, path)
		})
		select {
		case res := <-ch:
			if errors.Is(res.Err, errSelectionChanged) {
				continue
			}
			return res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// errSelectionChanged reports a load for a model that is no longer selected.
var errSelectionChanged = errors.New("selection changed during load")

// load binds the engine handle to mdl at path. It waits for any in-flight
// generation, closes the previous handle, then loads and opens a session.
func (m *Manager) load(mdl types.Model, path string) error {
	release, err := m.acquireSlot(m.baseCtx)
	if err != nil {
		return ErrShutdown
	}
	defer release()
	// Shutdown may have released the slot just before we took it.
	if m.isClosed() {
		return ErrShutdown
	}
	m.engineMu.Lock()
	defer m.engineMu.Unlock()

	// The selection may have moved on while we waited.
	if !m.isSelected(mdl) {
		return errSelectionChanged
	}
	if m.session != nil && m.loaded != nil && m.loaded.Model == mdl && m.loaded.Path == path {
		if !m.markReadyIfSelected(mdl) {
			return errSelectionChanged
		}
		return nil
	}

	m.setState(StateLoading, "")
	m.publish(Event{Name: "load_start", ModelID: mdl.ID, State: StateLoading, Fields: map[string]any{"path": path}})
	m.log.Info().Str("model", mdl.ID).Str("path", path).Msg("manager event=load_start")
	m.closeEngineLocked()

	if !m.files.Exists(mdl) {
		return m.failLoad(mdl, &llm.LoadError{Path: path, Err: os.ErrNotExist})
	}
	start := time.Now()
	eng, err := m.runtime.Load(path, llm.LoadOptions{
		Backend:   mdl.Backend,
		MaxTokens: mdl.MaxTokens,
		Threads:   m.threads,
		GPULayers: m.gpuLayers,
	})
	if err != nil {
		if !llm.IsLoadError(err) {
			err = &llm.LoadError{Path: path, Err: err}
		}
		return m.failLoad(mdl, err)
	}
	m.mu.Lock()
	m.loads++
	m.mu.Unlock()
	sess, err := eng.OpenSession(llm.SamplingFor(mdl))
	if err != nil {
		// A half-built handle is never kept around.
		m.engine = eng
		m.closeEngineLocked()
		if !llm.IsSessionError(err) {
			err = &llm.SessionError{Err: err}
		}
		return m.failLoad(mdl, err)
	}
	m.engine, m.session = eng, sess
	m.setLoaded(&LoadedModel{Model: mdl, Path: path})
	dur := time.Since(start)
	loadsTotal.WithLabelValues(mdl.ID, "ok").Inc()
	loadDuration.WithLabelValues(mdl.ID).Observe(dur.Seconds())
	if !m.markReadyIfSelected(mdl) {
		m.log.Info().Str("model", mdl.ID).Msg("manager event=load_superseded")
		return errSelectionChanged
	}

	m.publish(Event{Name: "load_ready", ModelID: mdl.ID, State: StateReady, Fields: map[string]any{"duration_ms": dur.Milliseconds()}})
	m.log.Info().Str("model", mdl.ID).Dur("duration", dur).Msg("manager event=load_ready")
	return nil
}

func (m *Manager) isSelected(mdl types.Model) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected != nil && *m.selected == mdl
}

// markReadyIfSelected moves to ready when mdl is still the selection and to
// unloaded otherwise, so the next EnsureReady loads the new selection.
func (m *Manager) markReadyIfSelected(mdl types.Model) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.selected != nil && *m.selected == mdl
	if ok {
		m.state = StateReady
	} else {
		m.state = StateUnloaded
	}
	m.err = ""
	return ok
}

func (m *Manager) failLoad(mdl types.Model, err error) error {
	m.setState(StateError, err.Error())
	loadsTotal.WithLabelValues(mdl.ID, "error").Inc()
	m.publish(Event{Name: "load_error", ModelID: mdl.ID, State: StateError, Fields: map[string]any{"error": err.Error()}})
	m.log.Error().Err(err).Str("model", mdl.ID).Msg("manager event=load_error")
	return fmt.Errorf("load %s: %w", mdl.ID, err)
}

// closeEngineLocked releases the session and engine. Caller holds the slot
// and engineMu.
func (m *Manager) closeEngineLocked() {
	if m.session != nil {
		llm.CloseQuietly(m.log, "session", m.session)
		m.session = nil
	}
	if m.engine != nil {
		llm.CloseQuietly(m.log, "engine", m.engine)
		m.engine = nil
		m.mu.Lock()
		m.closes++
		m.mu.Unlock()
		closesTotal.Inc()
		id := ""
		if m.loaded != nil {
			id = m.loaded.Model.ID
		}
		m.publish(Event{Name: "engine_closed", ModelID: id, State: m.currentState()})
		m.log.Info().Str("model", id).Msg("manager event=engine_closed")
	}
	m.setLoaded(nil)
}

// setLoaded updates the handle binding. Writers hold engineMu and mu, so
// either lock is enough to read it.
func (m *Manager) setLoaded(l *LoadedModel) {
	m.mu.Lock()
	m.loaded = l
	m.mu.Unlock()
}
