package registry

import (
	"llmchatd/pkg/types"
)

// Registry is an immutable, ordered set of models keyed by ID.
type Registry struct {
	models []types.Model
	index  map[string]int
}

// New builds a registry from sources in order. A later model with an ID
// already present replaces the earlier one in place, so catalog overrides
// keep the builtin ordering.
func New(sources ...[]types.Model) *Registry {
	r := &Registry{index: map[string]int{}}
	for _, src := range sources {
		for _, m := range src {
			if i, ok := r.index[m.ID]; ok {
				r.models[i] = m
				continue
			}
			r.index[m.ID] = len(r.models)
			r.models = append(r.models, m)
		}
	}
	return r
}

// List returns a copy of all models in order.
func (r *Registry) List() []types.Model {
	out := make([]types.Model, len(r.models))
	copy(out, r.models)
	return out
}

// Get returns the model with id.
func (r *Registry) Get(id string) (types.Model, bool) {
	i, ok := r.index[id]
	if !ok {
		return types.Model{}, false
	}
	return r.models[i], true
}

// Len returns the number of models.
func (r *Registry) Len() int { return len(r.models) }
