package chat

import (
	"context"
	"sync"
	"testing"

	"llmchatd/internal/llm"
	"llmchatd/internal/manager"
	"llmchatd/internal/registry"
	"llmchatd/pkg/types"
)

// scriptRuntime is an llm.Runtime whose sessions reply with fixed tokens.
type scriptRuntime struct {
	mu       sync.Mutex
	tokens   []string
	genErr   error
	opened   int
	prompts  []string
	loadedAt []string
}

func (r *scriptRuntime) Load(path string, _ llm.LoadOptions) (llm.Engine, error) {
	r.mu.Lock()
	r.loadedAt = append(r.loadedAt, path)
	r.mu.Unlock()
	return &scriptEngine{rt: r}, nil
}

func (r *scriptRuntime) sessionsOpened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

func (r *scriptRuntime) set(tokens []string, err error) {
	r.mu.Lock()
	r.tokens, r.genErr = tokens, err
	r.mu.Unlock()
}

type scriptEngine struct{ rt *scriptRuntime }

func (e *scriptEngine) OpenSession(llm.Sampling) (llm.Session, error) {
	e.rt.mu.Lock()
	e.rt.opened++
	e.rt.mu.Unlock()
	return &scriptSession{rt: e.rt}, nil
}

func (e *scriptEngine) Close() error { return nil }

type scriptSession struct{ rt *scriptRuntime }

func (s *scriptSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (llm.FinalResult, error) {
	s.rt.mu.Lock()
	s.rt.prompts = append(s.rt.prompts, prompt)
	tokens, genErr := s.rt.tokens, s.rt.genErr
	s.rt.mu.Unlock()
	for _, t := range tokens {
		if err := ctx.Err(); err != nil {
			return llm.FinalResult{}, err
		}
		if err := onToken(t); err != nil {
			return llm.FinalResult{}, err
		}
	}
	if genErr != nil {
		return llm.FinalResult{}, genErr
	}
	return llm.FinalResult{Tokens: len(tokens)}, nil
}

func (s *scriptSession) CountTokens(text string) (int, error) { return len([]rune(text)) / 4, nil }

func (s *scriptSession) Close() error { return nil }

type presentFiles struct{}

func (presentFiles) Exists(types.Model) bool        { return true }
func (presentFiles) LocalPath(m types.Model) string { return m.Path }

type fixture struct {
	svc   *Service
	mgr   *manager.Manager
	rt    *scriptRuntime
	store Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rt := &scriptRuntime{}
	mgr := manager.NewWithConfig(manager.ManagerConfig{Runtime: rt, Files: presentFiles{}})
	t.Cleanup(mgr.Shutdown)
	store := NewMemoryStore()
	svc := NewService(Config{
		Store:  store,
		Engine: mgr,
		Models: registry.New(registry.Builtin("/models")),
		Now:    fixedNow,
		NewID:  seqIDs(),
	})
	return &fixture{svc: svc, mgr: mgr, rt: rt, store: store}
}
