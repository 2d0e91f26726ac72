//go:build llama

package llm

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"llmchatd/pkg/types"
)

// Built reports whether this binary was compiled with the native runtime.
const Built = true

const defaultGPULayers = 99

type llamaRuntime struct {
	threads int
}

// NewLlamaRuntime returns the in-process go-llama.cpp runtime.
func NewLlamaRuntime(threads int) Runtime {
	return &llamaRuntime{threads: threads}
}

func (r *llamaRuntime) Load(path string, opts LoadOptions) (Engine, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &LoadError{Path: path, Err: errors.New("model path is empty")}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return nil, &LoadError{Path: path, Err: errors.New("model path is a directory")}
	}
	mo := []llama.ModelOption{llama.SetContext(opts.MaxTokens)}
	if opts.Backend == types.BackendGPU {
		mo = append(mo, llama.SetGPULayers(zn(opts.GPULayers, defaultGPULayers)))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = r.threads
	}
	return &llamaEngine{model: m, threads: max(1, threads)}, nil
}

// llamaEngine owns the loaded model. go-llama.cpp binds the context to the
// model, so every call into it is serialized by mu.
type llamaEngine struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (e *llamaEngine) OpenSession(params Sampling) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil, &SessionError{Err: ErrClosed}
	}
	if params.TopK <= 0 || params.TopP <= 0 || params.TopP > 1 || params.Temperature < 0 {
		return nil, &SessionError{Err: errors.New("invalid sampling parameters")}
	}
	return &llamaSession{engine: e, params: params}, nil
}

func (e *llamaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

// llamaSession keeps the turn transcript in Go and replays it as the prompt
// prefix of every prediction.
type llamaSession struct {
	engine     *llamaEngine
	params     Sampling
	transcript strings.Builder
	closed     bool
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed || e.model == nil {
		return FinalResult{}, ErrClosed
	}
	full := s.transcript.String() + prompt

	var (
		b       strings.Builder
		n       int
		stopErr error
	)
	// Bridge token streaming to onToken and respect cancellation.
	e.model.SetTokenCallback(func(tok string) bool {
		if err := ctx.Err(); err != nil {
			stopErr = err
			return false
		}
		if err := onToken(tok); err != nil {
			stopErr = err
			return false
		}
		b.WriteString(tok)
		n++
		return true
	})

	po := predictOptions(s.params, e.threads)
	text, err := e.model.Predict(full, po...)
	if stopErr != nil {
		return FinalResult{Content: b.String(), Tokens: n, FinishReason: "cancelled"}, stopErr
	}
	if err != nil {
		return FinalResult{Content: b.String(), Tokens: n}, err
	}
	if text == "" {
		text = b.String()
	}
	s.transcript.WriteString(prompt)
	s.transcript.WriteString(text)
	return FinalResult{Content: text, Tokens: n, FinishReason: "stop"}, nil
}

func (s *llamaSession) CountTokens(text string) (int, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.closed || e.model == nil {
		return 0, ErrClosed
	}
	n, _, err := e.model.TokenizeString(text, llama.SetThreads(e.threads))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *llamaSession) Close() error {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	s.closed = true
	s.transcript.Reset()
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts sampling parameters into go-llama.cpp options.
// Temperature 0 is kept as greedy decoding.
func predictOptions(p Sampling, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(p.Temperature),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	return po
}
