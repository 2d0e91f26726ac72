package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llmchatd/internal/common/fsutil"
	"llmchatd/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds models from filenames.
// ID is the full filename (including extension); Path is the absolute file
// path. Discovered models use the generic prompt style, the CPU backend and
// default sampling.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, applyDefaults(types.Model{
			ID:          name,
			Path:        filepath.Join(abs, name),
			Backend:     types.BackendCPU,
			Temperature: defaultTemperature,
		}))
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// catalogFile is the on-disk shape of a catalog override file.
type catalogFile struct {
	Models []types.Model `json:"models" yaml:"models" toml:"models"`
}

// LoadFile reads model definitions from a .yaml/.yml, .json or .toml file.
// Missing budget and sampling fields get defaults; every entry is validated.
func LoadFile(path string) ([]types.Model, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var cf catalogFile
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cf)
	case ".json":
		err = json.Unmarshal(b, &cf)
	case ".toml":
		err = toml.Unmarshal(b, &cf)
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	out := make([]types.Model, 0, len(cf.Models))
	for _, m := range cf.Models {
		m = applyDefaults(m)
		if m.Path != "" {
			if m.Path, err = fsutil.ExpandHome(m.Path); err != nil {
				return nil, err
			}
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, m)
	}
	return out, nil
}
