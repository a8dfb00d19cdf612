// Package generators holds the compiled training-data generators an algorithm
// row can select by name. Nothing stored in the backend is ever executed: a
// row only picks a generator and supplies its parameters.
package generators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"trainingops/internal/models"
)

// ErrUnknownGenerator is returned when an algorithm names a generator that is
// not registered
var ErrUnknownGenerator = errors.New("unknown generator")

// Params is the raw parameters object of an algorithm row
type Params json.RawMessage

// Decode unmarshals the parameters into v; empty parameters leave v untouched
func (p Params) Decode(v interface{}) error {
	if len(p) == 0 || string(p) == "null" {
		return nil
	}
	if err := json.Unmarshal(p, v); err != nil {
		return fmt.Errorf("invalid generator parameters: %w", err)
	}
	return nil
}

// Generator produces training examples from its parameters
type Generator interface {
	Name() string
	Generate(ctx context.Context, params Params) ([]models.TrainingExample, error)
}

// Registry maps generator names to implementations
type Registry struct {
	generators map[string]Generator
	mutex      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Register adds a generator; names must be unique
func (r *Registry) Register(g Generator) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := g.Name()
	if name == "" {
		return fmt.Errorf("generator name cannot be empty")
	}
	if _, exists := r.generators[name]; exists {
		return fmt.Errorf("generator %s is already registered", name)
	}
	r.generators[name] = g
	return nil
}

// Get looks up a generator by name
func (r *Registry) Get(name string) (Generator, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	g, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGenerator, name)
	}
	return g, nil
}

// Names lists registered generators, sorted
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins returns a registry holding the template, variations and llm
// generators. A nil source or completer leaves that generator out.
func Builtins(source ExampleSource, completer Completer) *Registry {
	r := NewRegistry()
	_ = r.Register(&Template{})
	if source != nil {
		_ = r.Register(&Variations{Source: source})
	}
	if completer != nil {
		_ = r.Register(&Model{Completer: completer})
	}
	return r
}
