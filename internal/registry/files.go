package registry

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"llmchatd/internal/common/fsutil"
	"llmchatd/pkg/types"
)

// FileProvider locates model weights on disk. A model's own Path wins when
// the file exists; otherwise the weights are expected in DownloadDir under
// the last path segment of the model URL.
type FileProvider struct {
	DownloadDir string
}

// LocalPath returns where the weights for m are, or should be, stored.
func (p FileProvider) LocalPath(m types.Model) string {
	if fsutil.FileExists(m.Path) {
		return m.Path
	}
	if p.DownloadDir != "" && m.URL != "" {
		if name := fileNameFromURL(m.URL); name != "" {
			return filepath.Join(p.DownloadDir, name)
		}
	}
	return m.Path
}

// Exists reports whether the weights for m are present.
func (p FileProvider) Exists(m types.Model) bool {
	return fsutil.FileExists(p.LocalPath(m))
}

// Delete removes the downloaded weights for m. Deleting a missing file is
// not an error.
func (p FileProvider) Delete(m types.Model) error {
	lp := p.LocalPath(m)
	if lp == "" {
		return nil
	}
	if err := os.Remove(lp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", lp, err)
	}
	return nil
}

func fileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
