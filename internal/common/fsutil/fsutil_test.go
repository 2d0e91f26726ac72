package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	return home
}

func TestExpandHome(t *testing.T) {
	home := setHome(t)
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"/tmp", "/tmp"},
		{"models/llm", "models/llm"},
		{"~", home},
		{"~/models/llm", filepath.Join(home, "models", "llm")},
		{"~/.local/share/llmchatd/chats.db", filepath.Join(home, ".local", "share", "llmchatd", "chats.db")},
	}
	for _, tc := range cases {
		got, err := ExpandHome(tc.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPathAndFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gemma3-1b-it-Q4_K_M.gguf")
	if err := os.WriteFile(file, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	missing := filepath.Join(dir, "missing.gguf")

	if !PathExists(dir) || !PathExists(file) {
		t.Fatalf("PathExists must see both the directory and the file")
	}
	if PathExists(missing) {
		t.Fatalf("PathExists(%q) = true", missing)
	}
	if !FileExists(file) {
		t.Fatalf("FileExists(%q) = false", file)
	}
	for _, p := range []string{dir, missing, ""} {
		if FileExists(p) {
			t.Fatalf("FileExists(%q) = true", p)
		}
	}
}
