package types

import (
	"fmt"
	"strings"
)

// Backend is the preferred compute backend for a model.
type Backend string

const (
	BackendUnspecified Backend = ""
	BackendCPU         Backend = "cpu"
	BackendGPU         Backend = "gpu"
)

// PromptStyle selects the prompt formatter variant used for a model.
type PromptStyle string

const (
	StyleGeneric   PromptStyle = "generic"
	StyleReasoning PromptStyle = "reasoning"
)

// Model describes one selectable model variant. Values are built once at
// startup and never mutated.
type Model struct {
	// Stable identifier for the model.
	// example: deepseek-r1-cpu
	ID string `json:"id" yaml:"id" toml:"id" example:"deepseek-r1-cpu"`
	// Human-friendly name.
	// example: DeepSeek R1 Distill Qwen 1.5B (CPU)
	Name string `json:"name" yaml:"name" toml:"name" example:"DeepSeek R1 Distill Qwen 1.5B (CPU)"`
	// Preferred local path of the weights file.
	// example: /data/local/tmp/llm/deepseek_q8.gguf
	Path string `json:"path" yaml:"path" toml:"path" example:"/data/local/tmp/llm/deepseek_q8.gguf"`
	// Optional remote URL the weights are downloaded from.
	URL string `json:"url,omitempty" yaml:"url" toml:"url"`
	// Optional license page.
	LicenseURL string `json:"license_url,omitempty" yaml:"license_url" toml:"license_url"`
	// Whether downloading requires an authenticated host session.
	NeedsAuth bool `json:"needs_auth" yaml:"needs_auth" toml:"needs_auth"`
	// Preferred backend: cpu, gpu or empty.
	// example: cpu
	Backend Backend `json:"backend,omitempty" yaml:"backend" toml:"backend" example:"cpu"`
	// Sampling temperature in [0,2].
	// example: 0.6
	Temperature float32 `json:"temperature" yaml:"temperature" toml:"temperature" example:"0.6"`
	// Top-K sampling, positive.
	// example: 40
	TopK int `json:"top_k" yaml:"top_k" toml:"top_k" example:"40"`
	// Nucleus sampling in (0,1].
	// example: 0.7
	TopP float32 `json:"top_p" yaml:"top_p" toml:"top_p" example:"0.7"`
	// Maximum context length in tokens.
	// example: 1024
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens" example:"1024"`
	// Prompt formatter variant.
	// example: reasoning
	Style PromptStyle `json:"style" yaml:"style" toml:"style" example:"reasoning"`
	// Tokens added per history message when estimating the budget.
	// example: 3
	DecodeOverhead int `json:"decode_overhead" yaml:"decode_overhead" toml:"decode_overhead" example:"3"`
	// Optional family (e.g., gemma, deepseek, phi).
	Family string `json:"family,omitempty" yaml:"family" toml:"family"`
}

// Validate checks sampling and budget ranges.
func (m Model) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("model id is empty")
	}
	if m.Temperature < 0 || m.Temperature > 2 {
		return fmt.Errorf("model %s: temperature %.2f out of range [0,2]", m.ID, m.Temperature)
	}
	if m.TopK <= 0 {
		return fmt.Errorf("model %s: top_k must be positive, got %d", m.ID, m.TopK)
	}
	if m.TopP <= 0 || m.TopP > 1 {
		return fmt.Errorf("model %s: top_p %.2f out of range (0,1]", m.ID, m.TopP)
	}
	if m.MaxTokens <= 0 {
		return fmt.Errorf("model %s: max_tokens must be positive, got %d", m.ID, m.MaxTokens)
	}
	if m.DecodeOverhead < 0 {
		return fmt.Errorf("model %s: decode_overhead must not be negative", m.ID)
	}
	switch m.Style {
	case StyleGeneric, StyleReasoning:
	default:
		return fmt.Errorf("model %s: unknown prompt style %q", m.ID, m.Style)
	}
	switch m.Backend {
	case BackendUnspecified, BackendCPU, BackendGPU:
	default:
		return fmt.Errorf("model %s: unknown backend %q", m.ID, m.Backend)
	}
	return nil
}
