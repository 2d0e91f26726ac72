package manager

import (
	"context"
	"strconv"
	"sync/atomic"

	"llmchatd/pkg/types"
)

// Switch selects mdl and loads it in the background, returning an operation
// ID. Callers poll Snapshot or subscribe to events to observe the outcome;
// the result is published as switch_done or switch_error.
func (m *Manager) Switch(ctx context.Context, mdl types.Model) (string, error) {
	if err := m.SelectModel(mdl); err != nil {
		return "", err
	}
	op := m.nextOpID()
	go func(opID string) {
		// Detached from ctx: the load outlives the request that asked for it.
		err := m.EnsureReady(context.WithoutCancel(ctx))
		name := "switch_done"
		fields := map[string]any{"op": opID}
		if err != nil {
			name = "switch_error"
			fields["error"] = err.Error()
		}
		m.publish(Event{Name: name, ModelID: mdl.ID, State: m.currentState(), Fields: fields})
	}(op)
	return op, nil
}

func (m *Manager) nextOpID() string {
	return "op-" + strconv.FormatUint(atomic.AddUint64(&m.opSeq, 1), 10)
}
