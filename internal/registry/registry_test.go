package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"llmchatd/pkg/types"
)

func TestBuiltin_ValidAndComplete(t *testing.T) {
	models := Builtin("/models")
	want := []string{"gemma3-cpu", "gemma3-gpu", "deepseek-r1-cpu", "phi4-cpu"}
	if len(models) != len(want) {
		t.Fatalf("expected %d models, got %d", len(want), len(models))
	}
	for i, m := range models {
		if m.ID != want[i] {
			t.Fatalf("model %d: id=%s want %s", i, m.ID, want[i])
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("builtin %s invalid: %v", m.ID, err)
		}
		if m.MaxTokens != DefaultMaxTokens || m.DecodeOverhead != DefaultDecodeOverhead {
			t.Fatalf("%s: budget defaults not applied: %+v", m.ID, m)
		}
		if !strings.HasPrefix(m.Path, "/models") {
			t.Fatalf("%s: path %s not under dir", m.ID, m.Path)
		}
	}
	r := New(models)
	ds, ok := r.Get("deepseek-r1-cpu")
	if !ok || ds.Style != types.StyleReasoning || ds.Temperature != 0.6 || ds.TopK != 40 || ds.TopP != 0.7 {
		t.Fatalf("deepseek entry: %+v", ds)
	}
	gpu, _ := r.Get("gemma3-gpu")
	if gpu.Backend != types.BackendGPU || !gpu.NeedsAuth {
		t.Fatalf("gemma gpu entry: %+v", gpu)
	}
}

func TestLoadDir_FiltersGGUF(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"b.gguf", "A.GGUF", "not-model.txt", "model.bin"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.gguf"), 0o755); err != nil {
		t.Fatal(err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(models) != 2 || models[0].ID != "A.GGUF" || models[1].ID != "b.gguf" {
		t.Fatalf("models: %+v", models)
	}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			t.Fatalf("discovered %s invalid: %v", m.ID, err)
		}
		if !filepath.IsAbs(m.Path) || m.Style != types.StyleGeneric {
			t.Fatalf("model %+v", m)
		}
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestLoadFile_Formats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"c.yaml": "models:\n  - id: custom\n    path: /m/custom.gguf\n    temperature: 0.2\n    style: reasoning\n",
		"c.json": `{"models":[{"id":"custom","path":"/m/custom.gguf","temperature":0.2,"style":"reasoning"}]}`,
		"c.toml": "[[models]]\nid = \"custom\"\npath = \"/m/custom.gguf\"\ntemperature = 0.2\nstyle = \"reasoning\"\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		models, err := LoadFile(p)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(models) != 1 {
			t.Fatalf("%s: %d models", name, len(models))
		}
		m := models[0]
		if m.ID != "custom" || m.Style != types.StyleReasoning || m.TopK != 40 || m.MaxTokens != 1024 || m.Temperature != 0.2 {
			t.Fatalf("%s: %+v", name, m)
		}
	}
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(p, []byte("models:\n  - id: x\n    temperature: 3\n"), 0o644)
	if _, err := LoadFile(p); err == nil {
		t.Fatalf("expected validation error")
	}
	q := filepath.Join(dir, "c.ini")
	_ = os.WriteFile(q, []byte(""), 0o644)
	if _, err := LoadFile(q); err == nil {
		t.Fatalf("expected extension error")
	}
}

func TestNew_OverrideKeepsOrder(t *testing.T) {
	base := Builtin("/models")
	override := base[2]
	override.Temperature = 0.1
	extra := types.Model{ID: "x"}
	r := New(base, []types.Model{override, extra})
	if r.Len() != 5 {
		t.Fatalf("len=%d", r.Len())
	}
	list := r.List()
	if list[2].ID != "deepseek-r1-cpu" || list[2].Temperature != 0.1 || list[4].ID != "x" {
		t.Fatalf("list: %+v", list)
	}
	list[0].ID = "mutated"
	if m, _ := r.Get("gemma3-cpu"); m.ID != "gemma3-cpu" {
		t.Fatalf("List must return a copy")
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestFileProvider_Resolution(t *testing.T) {
	dir := t.TempDir()
	dl := filepath.Join(dir, "downloads")
	if err := os.MkdirAll(dl, 0o755); err != nil {
		t.Fatal(err)
	}
	p := FileProvider{DownloadDir: dl}
	m := types.Model{ID: "a", Path: filepath.Join(dir, "bundled.gguf"), URL: "https://host/repo/resolve/main/weights.gguf?download=true"}

	want := filepath.Join(dl, "weights.gguf")
	if got := p.LocalPath(m); got != want {
		t.Fatalf("LocalPath=%s want %s", got, want)
	}
	if p.Exists(m) {
		t.Fatalf("nothing downloaded yet")
	}
	if err := os.WriteFile(want, []byte("w"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !p.Exists(m) {
		t.Fatalf("downloaded file not found")
	}
	// A bundled file at Path takes precedence.
	if err := os.WriteFile(m.Path, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := p.LocalPath(m); got != m.Path {
		t.Fatalf("LocalPath=%s want bundled %s", got, m.Path)
	}
	if err := p.Delete(m); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(m.Path); !os.IsNotExist(err) {
		t.Fatalf("bundled file not deleted")
	}
	if err := p.Delete(types.Model{ID: "gone", Path: filepath.Join(dir, "gone.gguf")}); err != nil {
		t.Fatalf("deleting a missing file: %v", err)
	}
	if got := (FileProvider{}).LocalPath(types.Model{Path: "/x.gguf", URL: "https://h/y.gguf"}); got != "/x.gguf" {
		t.Fatalf("no download dir: %s", got)
	}
}
