package manager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"llmchatd/internal/llm"
	"llmchatd/pkg/types"
)

// fakeRuntime is an in-memory llm.Runtime that records lifecycle calls.
type fakeRuntime struct {
	mu       sync.Mutex
	loads    int
	closes   int
	open     int // engines currently open
	maxOpen  int
	paths    []string
	log      []string
	sessions []*fakeSession

	loadErr  error
	openErr  error
	loadGate chan struct{} // Load blocks until closed
	genGate  chan struct{} // Generate blocks before returning until closed
	tokens   []string
	genErr   error
}

func (r *fakeRuntime) Load(path string, opts llm.LoadOptions) (llm.Engine, error) {
	if r.loadGate != nil {
		<-r.loadGate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	r.loads++
	r.open++
	if r.open > r.maxOpen {
		r.maxOpen = r.open
	}
	r.log = append(r.log, "load")
	return &fakeEngine{rt: r}, nil
}

func (r *fakeRuntime) record(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

func (r *fakeRuntime) counts() (loads, closes, open int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads, r.closes, r.open
}

func (r *fakeRuntime) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

type fakeEngine struct {
	rt     *fakeRuntime
	closed bool
}

func (e *fakeEngine) OpenSession(p llm.Sampling) (llm.Session, error) {
	e.rt.mu.Lock()
	defer e.rt.mu.Unlock()
	if e.rt.openErr != nil {
		return nil, e.rt.openErr
	}
	s := &fakeSession{rt: e.rt, sampling: p}
	e.rt.sessions = append(e.rt.sessions, s)
	e.rt.log = append(e.rt.log, "session_open")
	return s, nil
}

func (e *fakeEngine) Close() error {
	e.rt.mu.Lock()
	defer e.rt.mu.Unlock()
	if e.closed {
		return llm.ErrClosed
	}
	e.closed = true
	e.rt.closes++
	e.rt.open--
	e.rt.log = append(e.rt.log, "engine_close")
	return nil
}

type fakeSession struct {
	rt       *fakeRuntime
	sampling llm.Sampling
	mu       sync.Mutex
	prompts  []string
	closed   bool
}

func (s *fakeSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (llm.FinalResult, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	s.rt.mu.Lock()
	tokens, genErr, gate := s.rt.tokens, s.rt.genErr, s.rt.genGate
	s.rt.mu.Unlock()
	var out strings.Builder
	for _, t := range tokens {
		if err := ctx.Err(); err != nil {
			return llm.FinalResult{}, err
		}
		if err := onToken(t); err != nil {
			return llm.FinalResult{}, err
		}
		out.WriteString(t)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			s.rt.record("gen_end")
			return llm.FinalResult{}, ctx.Err()
		}
	}
	s.rt.record("gen_end")
	if genErr != nil {
		return llm.FinalResult{}, genErr
	}
	return llm.FinalResult{Content: out.String(), Tokens: len(tokens), FinishReason: "stop"}, nil
}

// CountTokens counts whitespace-separated words.
func (s *fakeSession) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return llm.ErrClosed
	}
	s.closed = true
	s.rt.record("session_close")
	return nil
}

// allFiles reports every model as present at its Path.
type allFiles struct{}

func (allFiles) Exists(types.Model) bool        { return true }
func (allFiles) LocalPath(m types.Model) string { return m.Path }

func testModel(id string, style types.PromptStyle) types.Model {
	return types.Model{
		ID:             id,
		Name:           id,
		Path:           "/models/" + id + ".gguf",
		Backend:        types.BackendCPU,
		Temperature:    0.6,
		TopK:           40,
		TopP:           0.7,
		MaxTokens:      1024,
		Style:          style,
		DecodeOverhead: 3,
	}
}

func newTestManager(t *testing.T, rt *fakeRuntime) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{Runtime: rt, Files: allFiles{}, Publisher: pub})
	t.Cleanup(m.Shutdown)
	return m, pub
}

// readyManager returns a manager with mdl selected and loaded.
func readyManager(t *testing.T, rt *fakeRuntime, mdl types.Model) (*Manager, *MemoryPublisher) {
	t.Helper()
	m, pub := newTestManager(t, rt)
	if err := m.SelectModel(mdl); err != nil {
		t.Fatalf("SelectModel: %v", err)
	}
	if err := m.EnsureReady(testCtx(t)); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	return m, pub
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// drain reads every delta until the channel closes.
func drain(t *testing.T, s *Stream) []Delta {
	t.Helper()
	var out []Delta
	timeout := time.After(5 * time.Second)
	for {
		select {
		case d, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, d)
		case <-timeout:
			t.Fatalf("stream did not finish; got %d deltas", len(out))
		}
	}
}

func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.Snapshot().State == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state did not reach %s, got %s", want, m.Snapshot().State)
}

var errBoom = errors.New("boom")
