package manager

import (
	"llmchatd/internal/common/fsutil"
	"llmchatd/pkg/types"
)

// pathFiles resolves a model to its configured Path.
type pathFiles struct{}

func (pathFiles) Exists(m types.Model) bool      { return fsutil.FileExists(m.Path) }
func (pathFiles) LocalPath(m types.Model) string { return m.Path }

func copyModel(m *types.Model) *types.Model {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
