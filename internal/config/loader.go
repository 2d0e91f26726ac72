package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llmchatd/internal/common/fsutil"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DownloadDir  string `json:"download_dir" yaml:"download_dir" toml:"download_dir"`
	CatalogFile  string `json:"catalog_file" yaml:"catalog_file" toml:"catalog_file"`
	DBPath       string `json:"db_path" yaml:"db_path" toml:"db_path"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	Threads      int    `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers    int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	// CORS is disabled unless enabled here.
	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

// Defaults returns the configuration used when nothing is specified.
func Defaults() Config {
	return Config{
		Addr:         ":8080",
		ModelsDir:    "~/models/llm",
		DownloadDir:  "~/.local/share/llmchatd/models",
		DBPath:       "~/.local/share/llmchatd/chats.db",
		DefaultModel: "deepseek-r1-cpu",
		LogLevel:     "info",
		Threads:      4,
	}
}

// ApplyDefaults fills unspecified fields from Defaults and expands a
// leading '~' in paths.
func (c Config) ApplyDefaults() (Config, error) {
	d := Defaults()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = d.ModelsDir
	}
	if c.DownloadDir == "" {
		c.DownloadDir = d.DownloadDir
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.DefaultModel == "" {
		c.DefaultModel = d.DefaultModel
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Threads <= 0 {
		c.Threads = d.Threads
	}
	for _, p := range []*string{&c.ModelsDir, &c.DownloadDir, &c.DBPath, &c.CatalogFile} {
		x, err := fsutil.ExpandHome(*p)
		if err != nil {
			return c, err
		}
		*p = x
	}
	return c, nil
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
