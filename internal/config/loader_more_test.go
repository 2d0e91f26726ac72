package config

import (
	"path/filepath"
	"testing"
)

func TestLoad_RejectsMalformedFiles(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.yml":  "threads: [1\n",
		"bad.json": `{ "addr": ":8080", "models_dir": }`,
		"bad.toml": "addr=:8080\nmodels_dir\n",
	}
	for name, content := range cases {
		if _, err := Load(writeTempFile(t, d, name, content)); err == nil {
			t.Fatalf("%s: expected unmarshal error", name)
		}
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestApplyDefaults_ExpandsHomeInEveryPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := Config{
		ModelsDir:   "~/models",
		DownloadDir: "~/dl",
		CatalogFile: "~/catalog.yaml",
		DBPath:      "/var/lib/llmchatd/chats.db",
	}.ApplyDefaults()
	if err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}
	checks := [][2]string{
		{cfg.ModelsDir, filepath.Join(home, "models")},
		{cfg.DownloadDir, filepath.Join(home, "dl")},
		{cfg.CatalogFile, filepath.Join(home, "catalog.yaml")},
		{cfg.DBPath, "/var/lib/llmchatd/chats.db"},
	}
	for _, c := range checks {
		if c[0] != c[1] {
			t.Fatalf("expanded %q, want %q", c[0], c[1])
		}
	}
}

func TestApplyDefaults_ExpandsDefaultDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := Config{}.ApplyDefaults()
	if err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}
	if want := filepath.Join(home, ".local", "share", "llmchatd", "chats.db"); cfg.DBPath != want {
		t.Fatalf("DBPath=%q want %q", cfg.DBPath, want)
	}
	if want := filepath.Join(home, "models", "llm"); cfg.ModelsDir != want {
		t.Fatalf("ModelsDir=%q want %q", cfg.ModelsDir, want)
	}
}
