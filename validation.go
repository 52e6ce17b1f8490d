package dinghy

import (
	"reflect"

	"github.com/dinghy-di/dinghy/internal/graph"
)

// validateLifetimes rejects configurations where a Singleton service
// depends, anywhere in its transitive dependency closure, on a Scoped
// service. A singleton capturing one scope's instance would leak it across
// every scope, so this fails the build before any resolution can happen.
//
// Cycles in the dependency graph terminate the walk here without error;
// they are reported at resolution time with the full chain.
func validateLifetimes(descriptors []*Descriptor) error {
	lifetimes := make(map[reflect.Type]Lifetime, len(descriptors))
	walker := graph.New()

	// First registration wins, for lifetimes and edges alike, matching
	// first-match resolution lookup.
	for _, d := range descriptors {
		if _, ok := lifetimes[d.ServiceType]; !ok {
			lifetimes[d.ServiceType] = d.Lifetime
		}
		walker.Add(d.ServiceType, d.Dependencies)
	}

	for _, d := range descriptors {
		if d.Lifetime != Singleton || d.IsInstance {
			continue
		}

		for _, dep := range closureOf(walker, d) {
			if lifetimes[dep] == Scoped {
				return LifetimeConflictError{
					ServiceType:        d.ServiceType,
					ServiceLifetime:    d.Lifetime,
					DependencyType:     dep,
					DependencyLifetime: Scoped,
				}
			}
		}
	}

	return nil
}

// closureOf collects the descriptor's direct dependencies plus everything
// transitively reachable from them through effective registrations.
func closureOf(walker *graph.Walker, d *Descriptor) []reflect.Type {
	seen := make(map[reflect.Type]bool, len(d.Dependencies))
	closure := make([]reflect.Type, 0, len(d.Dependencies))

	add := func(t reflect.Type) {
		if !seen[t] {
			seen[t] = true
			closure = append(closure, t)
		}
	}

	for _, dep := range d.Dependencies {
		add(dep)
		for _, transitive := range walker.Closure(dep) {
			add(transitive)
		}
	}

	return closure
}
