package manager

import (
	"github.com/rs/zerolog"

	"llmchatd/internal/llm"
	"llmchatd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultThreads = 4
)

// ModelFiles resolves where a model's weights live on disk. Downloading is
// done elsewhere; the manager only checks and reads.
type ModelFiles interface {
	Exists(m types.Model) bool
	LocalPath(m types.Model) string
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Runtime loads weights. Defaults to the go-llama.cpp runtime (a stub
	// unless built with -tags=llama).
	Runtime llm.Runtime
	// Files resolves model paths. Defaults to each model's Path.
	Files ModelFiles
	// Initial selection; optional.
	Model *types.Model
	// Inference configuration.
	Threads   int
	GPULayers int
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := newManager()
	if cfg.Threads <= 0 {
		m.threads = defaultThreads
	} else {
		m.threads = cfg.Threads
	}
	m.gpuLayers = cfg.GPULayers
	if cfg.Runtime != nil {
		m.runtime = cfg.Runtime
	} else {
		m.runtime = llm.NewLlamaRuntime(m.threads)
	}
	if cfg.Files != nil {
		m.files = cfg.Files
	} else {
		m.files = pathFiles{}
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	if cfg.Publisher != nil {
		m.publisher = cfg.Publisher
	}
	if cfg.Model != nil {
		sel := *cfg.Model
		m.selected = &sel
	}
	return m
}
