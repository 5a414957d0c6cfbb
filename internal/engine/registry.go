package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ament-gradle/ament-gradle/internal/ports"
)

var ErrUnknownBuildType = errors.New("unknown build type")

// Registry maps build-type names to the adapters that implement them. It is
// filled explicitly at startup.
type Registry struct {
	adapters map[string]ports.BuildAdapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]ports.BuildAdapter)}
}

func (r *Registry) Register(a ports.BuildAdapter) error {
	name := a.Name()
	if _, ok := r.adapters[name]; ok {
		return fmt.Errorf("build type %q registered twice", name)
	}
	r.adapters[name] = a
	return nil
}

func (r *Registry) Lookup(name string) (ports.BuildAdapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuildType, name)
	}
	return a, nil
}

// Names lists the registered build types in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
