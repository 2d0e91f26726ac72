//go:build !llama

package llm

// Built reports whether this binary was compiled with the native runtime.
const Built = false

type stubRuntime struct{}

// NewLlamaRuntime returns a runtime that refuses to load models because the
// native runtime was not compiled in.
func NewLlamaRuntime(threads int) Runtime { return stubRuntime{} }

func (stubRuntime) Load(path string, opts LoadOptions) (Engine, error) {
	return nil, &LoadError{Path: path, Err: ErrRuntimeUnavailable}
}
