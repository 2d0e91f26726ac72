package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"llmchatd/pkg/types"
)

func createChat(t *testing.T, base string) types.Conversation {
	t.Helper()
	resp, body := httpPostJSON(t, base+"/chats", []byte(`{}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("/chats status=%d body=%s", resp.StatusCode, body)
	}
	var c types.Conversation
	if err := json.Unmarshal(body, &c); err != nil {
		t.Fatalf("/chats json: %v", err)
	}
	return c
}

func TestE2E_Models_Ensure_Send_Status(t *testing.T) {
	dir, models := createTempModelsDir(t, "alpha.gguf", "beta.gguf")
	rt := newGatedRuntime("hello", " there")
	close(rt.gate)
	srv, _ := newServerForDir(t, dir, models[0], rt)

	resp, body := httpGet(t, srv.URL+"/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models status=%d body=%s", resp.StatusCode, body)
	}
	var mr types.ModelsResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		t.Fatalf("/models json: %v", err)
	}
	// Four built-in entries plus the two scanned files.
	if len(mr.Models) != 6 || mr.Selected != "alpha.gguf" {
		t.Fatalf("models=%d selected=%q", len(mr.Models), mr.Selected)
	}

	if resp, _ := httpGet(t, srv.URL+"/readyz"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz expected 503 before ensure, got %d", resp.StatusCode)
	}
	if resp, body := httpPostJSON(t, srv.URL+"/ensure", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("/ensure status=%d body=%s", resp.StatusCode, body)
	}
	if resp, _ := httpGet(t, srv.URL+"/readyz"); resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz expected 200 after ensure, got %d", resp.StatusCode)
	}

	c := createChat(t, srv.URL)
	resp, body = httpPostJSON(t, srv.URL+"/chats/"+c.ID+"/messages", []byte(`{"prompt":"hi"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send status=%d body=%s", resp.StatusCode, body)
	}
	if !bytes.Contains(body, []byte("\n")) {
		t.Fatalf("expected NDJSON lines, got %q", body)
	}

	resp, body = httpGet(t, srv.URL+"/status")
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("/status json: %v body=%s", err, body)
	}
	if st.State != "ready" || st.Loaded != "alpha.gguf" || st.LoadsTotal != 1 || st.Generating {
		t.Fatalf("/status=%+v", st)
	}

	resp, body = httpGet(t, srv.URL+"/chats")
	var list types.ChatsResponse
	_ = json.Unmarshal(body, &list)
	if len(list.Chats) != 1 || list.Chats[0].Preview != "hello there" {
		t.Fatalf("/chats=%+v", list)
	}
}

// TestE2E_Backpressure429 verifies a second message is rejected with 429
// while a reply is still streaming.
func TestE2E_Backpressure429(t *testing.T) {
	dir, models := createTempModelsDir(t, "alpha.gguf")
	rt := newGatedRuntime("par", "tial")
	srv, a := newServerForDir(t, dir, models[0], rt)
	c := createChat(t, srv.URL)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/chats/"+c.ID+"/messages", strings.NewReader(`{"prompt":"one"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	defer resp.Body.Close()
	sc := bufio.NewScanner(resp.Body)
	if !sc.Scan() {
		t.Fatalf("no first line: %v", sc.Err())
	}
	waitFor(t, "generation in flight", func() bool { return a.Manager.Snapshot().Generating })

	busy, body := httpPostJSON(t, srv.URL+"/chats/"+c.ID+"/messages", []byte(`{"prompt":"two"}`))
	if busy.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second send status=%d body=%s", busy.StatusCode, body)
	}

	close(rt.gate)
	var last types.StreamLine
	for sc.Scan() {
		last = types.StreamLine{}
		_ = json.Unmarshal(sc.Bytes(), &last)
	}
	if !last.Done || len(last.Messages) != 2 || last.Messages[1].Text != "partial" {
		t.Fatalf("final line=%+v", last)
	}

	_, metrics := httpGet(t, srv.URL+"/metrics")
	if !bytes.Contains(metrics, []byte(`llmchatd_http_backpressure_total{reason="session_busy"}`)) {
		t.Fatalf("backpressure metric missing")
	}
}

// TestE2E_ClientDisconnectStopsGeneration checks that closing the response
// cancels the runtime call, frees the engine and keeps the partial reply.
func TestE2E_ClientDisconnectStopsGeneration(t *testing.T) {
	dir, models := createTempModelsDir(t, "alpha.gguf")
	rt := newGatedRuntime("half", " never")
	srv, a := newServerForDir(t, dir, models[0], rt)
	c := createChat(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/chats/"+c.ID+"/messages", strings.NewReader(`{"prompt":"go"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	sc := bufio.NewScanner(resp.Body)
	if !sc.Scan() {
		t.Fatalf("no first line")
	}
	cancel()
	_ = resp.Body.Close()

	waitFor(t, "runtime cancellation", func() bool { return rt.cancellations() == 1 })
	waitFor(t, "slot release", func() bool { return !a.Manager.Snapshot().Generating })

	got, err := a.GetChat(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[1].Text != "half" || got.Messages[1].Loading {
		t.Fatalf("persisted=%+v", got.Messages)
	}
}

func TestE2E_UnknownModel404(t *testing.T) {
	dir, _ := createTempModelsDir(t, "alpha.gguf")
	srv, _ := newServerForDir(t, dir, "", newGatedRuntime("", ""))

	resp, body := httpPostJSON(t, srv.URL+"/select", []byte(`{"model":"missing.gguf"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, body)
	}
	resp, body = httpPostJSON(t, srv.URL+"/chats", []byte(`{"model":"missing.gguf"}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("create with unknown model: %d body=%s", resp.StatusCode, body)
	}
}
