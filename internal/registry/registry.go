// Package registry holds the fixed name -> pipeline mapping built at
// startup. The mapping is read-only after construction; all accessors are
// safe for concurrent use.
package registry

import (
	"mldesk/internal/pipeline"
	"mldesk/pkg/types"
)

// Registry is an ordered, immutable mapping from display name to pipeline.
type Registry struct {
	names  []string
	byName map[string]pipeline.Pipeline
}

// New builds a registry from the given pipelines, preserving argument order.
// Names come from each pipeline's descriptor; a duplicate name keeps the
// first registration.
func New(pipes ...pipeline.Pipeline) *Registry {
	r := &Registry{byName: make(map[string]pipeline.Pipeline, len(pipes))}
	for _, p := range pipes {
		name := p.Info().Name
		if _, exists := r.byName[name]; exists {
			continue
		}
		r.names = append(r.names, name)
		r.byName[name] = p
	}
	return r
}

// Get returns the pipeline registered under name.
func (r *Registry) Get(name string) (pipeline.Pipeline, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, ErrUnknownModel(name)
	}
	return p, nil
}

// Names returns the registered display names in registration order.
// The returned slice is a copy.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// OtherThan returns the one registered name that is not the given name.
// Defined only for a registry of exactly two models.
func (r *Registry) OtherThan(name string) (string, error) {
	if len(r.names) != 2 {
		return "", pairError{size: len(r.names)}
	}
	if _, ok := r.byName[name]; !ok {
		return "", ErrUnknownModel(name)
	}
	for _, n := range r.names {
		if n != name {
			return n, nil
		}
	}
	// Both registered names equal the argument; cannot happen since New
	// deduplicates, but keep the lookup total.
	return "", ErrUnknownModel(name)
}

// Infos returns the current ModelInfo of every registered pipeline in order.
func (r *Registry) Infos() []types.ModelInfo {
	out := make([]types.ModelInfo, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n].Info())
	}
	return out
}
