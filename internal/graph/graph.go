// Package graph walks the static dependency relationships declared by
// service registrations. The container uses it at build time to inspect
// the transitive dependency closure of each singleton.
package graph

import "reflect"

// Walker holds the dependency edges of registered services. Because the
// descriptor store resolves duplicates in favor of the first registration,
// only the first set of edges recorded for a type is kept.
type Walker struct {
	edges map[reflect.Type][]reflect.Type
}

// New creates an empty Walker.
func New() *Walker {
	return &Walker{
		edges: make(map[reflect.Type][]reflect.Type),
	}
}

// Add records the direct dependencies of a service type. A type that was
// already added keeps its original edges, mirroring first-match lookup in
// the descriptor store.
func (w *Walker) Add(t reflect.Type, deps []reflect.Type) {
	if t == nil {
		return
	}
	if _, ok := w.edges[t]; ok {
		return
	}
	w.edges[t] = deps
}

// Closure returns every type transitively reachable from root, excluding
// root itself unless it is reachable through a cycle. The walk is
// depth-first with a visited set, so cycles terminate the walk rather than
// recursing forever.
func (w *Walker) Closure(root reflect.Type) []reflect.Type {
	visited := make(map[reflect.Type]bool)
	var order []reflect.Type

	var visit func(t reflect.Type)
	visit = func(t reflect.Type) {
		for _, dep := range w.edges[t] {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			order = append(order, dep)
			visit(dep)
		}
	}

	visit(root)
	return order
}
