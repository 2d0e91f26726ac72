package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"llmchatd/internal/llm"
	"llmchatd/pkg/types"
)

// Manager owns the single engine handle and its conversation session.
//
// Two locks coordinate access. genCh is a one-slot channel marking a
// generation in progress; engineMu guards engine and session transitions and
// token counting. Whoever needs both takes the slot first.
type Manager struct {
	mu       sync.RWMutex
	state    State
	selected *types.Model
	err      string
	active   *Stream
	closed   bool

	loads, closes, resets uint64

	engineMu sync.Mutex
	engine   llm.Engine
	session  llm.Session
	loaded   *LoadedModel // written under engineMu and mu

	genCh     chan struct{}
	loadGroup singleflight.Group
	opSeq     uint64

	baseCtx    context.Context
	baseCancel context.CancelFunc
	startTime  time.Time

	runtime   llm.Runtime
	files     ModelFiles
	threads   int
	gpuLayers int
	log       zerolog.Logger
	publisher EventPublisher
}

func newManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		state:      StateUnloaded,
		genCh:      make(chan struct{}, 1),
		baseCtx:    ctx,
		baseCancel: cancel,
		startTime:  time.Now(),
		log:        zerolog.Nop(),
		publisher:  noopPublisher{},
	}
}

// New returns a manager that loads models through rt.
func New(rt llm.Runtime) *Manager {
	return NewWithConfig(ManagerConfig{Runtime: rt})
}

// Ready reports whether a session for the selected model is open.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && !m.closed
}

// Selected returns the currently selected model, if any.
func (m *Manager) Selected() (types.Model, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selected == nil {
		return types.Model{}, false
	}
	return *m.selected, true
}

// SelectModel records the model to use next. It never loads: the next
// EnsureReady closes whatever is loaded and loads mdl. Selecting the model
// that is already selected is a no-op.
func (m *Manager) SelectModel(mdl types.Model) error {
	if err := mdl.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrShutdown
	}
	if m.selected != nil && *m.selected == mdl {
		m.mu.Unlock()
		return nil
	}
	m.selected = copyModel(&mdl)
	// A session bound to another model is no longer usable for generation.
	if m.state == StateReady || m.state == StateError {
		m.state = StateUnloaded
		m.err = ""
	}
	m.mu.Unlock()
	m.log.Info().Str("model", mdl.ID).Msg("manager event=select")
	m.publish(Event{Name: "select", ModelID: mdl.ID, State: m.currentState()})
	return nil
}

func (m *Manager) currentState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State, errMsg string) {
	m.mu.Lock()
	m.state = s
	m.err = errMsg
	m.mu.Unlock()
}

// SetEventPublisher replaces the lifecycle event sink. nil restores the
// default no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}
