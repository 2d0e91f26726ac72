package registry

import (
	"path/filepath"

	"llmchatd/pkg/types"
)

// Sampling and budget defaults for models without explicit settings.
const (
	DefaultMaxTokens      = 1024
	DefaultDecodeOverhead = 3
	defaultTemperature    = 0.8
	defaultTopK           = 40
	defaultTopP           = 0.95
)

// Builtin returns the fixed model catalog with weights expected under dir.
func Builtin(dir string) []types.Model {
	gemmaURL := "https://huggingface.co/ggml-org/gemma-3-1b-it-GGUF/resolve/main/gemma-3-1b-it-Q4_K_M.gguf"
	gemmaLicense := "https://ai.google.dev/gemma/terms"
	models := []types.Model{
		{
			ID:          "gemma3-cpu",
			Name:        "Gemma 3 1B IT (CPU)",
			Path:        filepath.Join(dir, "gemma-3-1b-it-Q4_K_M.gguf"),
			URL:         gemmaURL,
			LicenseURL:  gemmaLicense,
			NeedsAuth:   true,
			Backend:     types.BackendCPU,
			Temperature: 1.0,
			TopK:        64,
			TopP:        0.95,
			Style:       types.StyleGeneric,
			Family:      "gemma",
		},
		{
			ID:          "gemma3-gpu",
			Name:        "Gemma 3 1B IT (GPU)",
			Path:        filepath.Join(dir, "gemma-3-1b-it-Q4_K_M.gguf"),
			URL:         gemmaURL,
			LicenseURL:  gemmaLicense,
			NeedsAuth:   true,
			Backend:     types.BackendGPU,
			Temperature: 1.0,
			TopK:        64,
			TopP:        0.95,
			Style:       types.StyleGeneric,
			Family:      "gemma",
		},
		{
			ID:          "deepseek-r1-cpu",
			Name:        "DeepSeek R1 Distill Qwen 1.5B (CPU)",
			Path:        filepath.Join(dir, "DeepSeek-R1-Distill-Qwen-1.5B-Q8_0.gguf"),
			URL:         "https://huggingface.co/unsloth/DeepSeek-R1-Distill-Qwen-1.5B-GGUF/resolve/main/DeepSeek-R1-Distill-Qwen-1.5B-Q8_0.gguf",
			Backend:     types.BackendCPU,
			Temperature: 0.6,
			TopK:        40,
			TopP:        0.7,
			Style:       types.StyleReasoning,
			Family:      "deepseek",
		},
		{
			ID:          "phi4-cpu",
			Name:        "Phi-4 mini instruct (CPU)",
			Path:        filepath.Join(dir, "Phi-4-mini-instruct-Q8_0.gguf"),
			URL:         "https://huggingface.co/unsloth/Phi-4-mini-instruct-GGUF/resolve/main/Phi-4-mini-instruct-Q8_0.gguf",
			Backend:     types.BackendCPU,
			Temperature: 0.0,
			TopK:        40,
			TopP:        1.0,
			Style:       types.StyleGeneric,
			Family:      "phi",
		},
	}
	for i := range models {
		models[i] = applyDefaults(models[i])
	}
	return models
}

// applyDefaults fills budget fields and, when unset, sampling fields.
func applyDefaults(m types.Model) types.Model {
	if m.Name == "" {
		m.Name = m.ID
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = DefaultMaxTokens
	}
	if m.DecodeOverhead == 0 {
		m.DecodeOverhead = DefaultDecodeOverhead
	}
	if m.Style == "" {
		m.Style = types.StyleGeneric
	}
	if m.TopK == 0 {
		m.TopK = defaultTopK
	}
	if m.TopP == 0 {
		m.TopP = defaultTopP
	}
	return m
}
