package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"llmchatd/internal/app"
	"llmchatd/internal/config"
	"llmchatd/internal/httpapi"
	"llmchatd/internal/llm"
)

// createTempModelsDir creates a temporary directory populated with placeholder
// .gguf files and returns the directory path and the model IDs (filenames).
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("gguf"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// gatedRuntime replies with first, then waits for gate (or cancellation)
// before sending rest.
type gatedRuntime struct {
	first, rest string
	gate        chan struct{}

	mu        sync.Mutex
	cancelled int
}

func newGatedRuntime(first, rest string) *gatedRuntime {
	return &gatedRuntime{first: first, rest: rest, gate: make(chan struct{})}
}

func (r *gatedRuntime) Load(string, llm.LoadOptions) (llm.Engine, error) { return gatedEngine{r}, nil }

func (r *gatedRuntime) cancellations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

type gatedEngine struct{ rt *gatedRuntime }

func (e gatedEngine) OpenSession(llm.Sampling) (llm.Session, error) { return gatedSession(e), nil }
func (gatedEngine) Close() error                                    { return nil }

type gatedSession gatedEngine

func (s gatedSession) Generate(ctx context.Context, _ string, onToken func(string) error) (llm.FinalResult, error) {
	if err := onToken(s.rt.first); err != nil {
		return llm.FinalResult{}, err
	}
	select {
	case <-s.rt.gate:
	case <-ctx.Done():
		s.rt.mu.Lock()
		s.rt.cancelled++
		s.rt.mu.Unlock()
		return llm.FinalResult{}, ctx.Err()
	}
	if err := onToken(s.rt.rest); err != nil {
		return llm.FinalResult{}, err
	}
	return llm.FinalResult{}, nil
}
func (gatedSession) CountTokens(text string) (int, error) { return len(strings.Fields(text)), nil }
func (gatedSession) Close() error                         { return nil }

func newServerForDir(t *testing.T, modelsDir, defaultModel string, rt llm.Runtime) (*httptest.Server, *app.App) {
	t.Helper()
	cfg := config.Config{
		ModelsDir:    modelsDir,
		DownloadDir:  filepath.Join(t.TempDir(), "dl"),
		DBPath:       filepath.Join(t.TempDir(), "chats.db"),
		DefaultModel: defaultModel,
	}
	a, err := app.New(context.Background(), app.Options{Config: cfg, Runtime: rt})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(a))
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return srv, a
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
