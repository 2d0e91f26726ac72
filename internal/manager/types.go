package manager

import "llmchatd/pkg/types"

// State represents the lifecycle state of the engine handle.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateError    State = "error"
)

// LoadedModel identifies what the live engine handle is bound to.
type LoadedModel struct {
	Model types.Model
	Path  string
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State      State
	Selected   *types.Model
	Loaded     *LoadedModel
	Generating bool
	Err        string
}
