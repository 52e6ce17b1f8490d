package dinghy

import (
	"reflect"
	"sync"
)

// resolution carries the state of one logical top-level resolve call. Each
// call owns an independent path, so concurrent resolutions never observe
// each other's in-progress constructions. The path is threaded through
// every recursive dependency resolve, which is what makes circular
// dependency detection per-call-chain rather than per-container.
type resolution struct {
	provider *provider
	scope    *scope // nil when resolving from the root context
	path     []reflect.Type
}

// ResolveType resolves a single service type within this call chain. It
// implements reflection.Resolver, so constructor parameters recurse back
// through the same path and caches.
func (r *resolution) ResolveType(t reflect.Type) (any, error) {
	if t == nil {
		return nil, ResolutionError{Cause: ErrServiceTypeNil}
	}

	for _, inProgress := range r.path {
		if inProgress == t {
			chain := make([]reflect.Type, len(r.path), len(r.path)+1)
			copy(chain, r.path)
			return nil, CircularDependencyError{Chain: append(chain, t)}
		}
	}

	descriptor := r.provider.lookup(t)
	if descriptor == nil {
		if r.provider.options.AllowMissing {
			return nil, nil
		}
		return nil, ResolutionError{ServiceType: t, Cause: ErrServiceNotFound}
	}

	// Fixed instances are already the singleton; no caching or
	// construction applies.
	if descriptor.IsInstance {
		r.count(t)
		return descriptor.Instance, nil
	}

	r.path = append(r.path, t)
	defer func() {
		r.path = r.path[:len(r.path)-1]
	}()

	var instance any
	var err error

	switch descriptor.Lifetime {
	case Singleton:
		var created bool
		instance, created, err = r.provider.singletons.getOrCreate(t, func() (any, error) {
			return r.construct(descriptor)
		})
		if err == nil && created {
			r.provider.captureDisposable(instance)
		}

	case Scoped:
		if r.scope == nil {
			return nil, ResolutionError{ServiceType: t, Cause: ErrScopedFromRoot}
		}

		var created bool
		instance, created, err = r.scope.instances.getOrCreate(t, func() (any, error) {
			return r.construct(descriptor)
		})
		if err == nil && created {
			r.scope.captureDisposable(instance)
		}

	case Transient:
		instance, err = r.construct(descriptor)
		if err == nil {
			r.captureTransient(instance)
		}

	default:
		err = LifetimeError{Value: descriptor.Lifetime}
	}

	if err != nil {
		return nil, err
	}

	r.count(t)
	return instance, nil
}

// construct builds a new instance from the descriptor's construction path
// and performs field injection on the result.
func (r *resolution) construct(d *Descriptor) (any, error) {
	var instance any
	var err error

	if d.Constructor != nil {
		instance, err = r.provider.invoker.Invoke(d.Constructor, r)
		if err != nil {
			return nil, ConstructorInvocationError{
				ServiceType: d.ServiceType,
				Constructor: d.Constructor.Type,
				Cause:       err,
			}
		}
	} else {
		instance, err = r.provider.invoker.Construct(d.ImplType)
		if err != nil {
			return nil, MissingConstructorError{ServiceType: d.ImplType, Cause: err}
		}
	}

	return r.injectFields(d.ServiceType, instance)
}

// injectFields resolves and assigns every `inject`-tagged field of the
// constructed instance. Optional fields are left unset when their type
// cannot be resolved; required fields abort the resolution.
func (r *resolution) injectFields(serviceType reflect.Type, instance any) (any, error) {
	if instance == nil {
		return instance, nil
	}

	v := reflect.ValueOf(instance)

	var target reflect.Value
	byValue := false
	switch {
	case v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct:
		target = v.Elem()
	case v.Kind() == reflect.Struct:
		// Value instances need an addressable copy to write into.
		target = reflect.New(v.Type()).Elem()
		target.Set(v)
		byValue = true
	default:
		return instance, nil
	}

	fields, err := r.provider.analyzer.InjectionFields(target.Type())
	if err != nil {
		return nil, FieldInjectionError{ServiceType: serviceType, Cause: err}
	}
	if len(fields) == 0 {
		return instance, nil
	}

	for _, field := range fields {
		value, err := r.ResolveType(field.Type)
		if err != nil {
			if field.Optional {
				continue
			}
			return nil, FieldInjectionError{
				ServiceType: serviceType,
				Field:       field.Name,
				Cause:       err,
			}
		}
		if value == nil {
			// Missing-service policy returned an absent value.
			continue
		}

		target.Field(field.Index).Set(reflect.ValueOf(value))
	}

	if byValue {
		return target.Interface(), nil
	}
	return instance, nil
}

// captureTransient tracks a transient disposable on the context that
// resolved it, so it is released with that context.
func (r *resolution) captureTransient(instance any) {
	if r.scope != nil {
		r.scope.captureDisposable(instance)
		return
	}
	r.provider.captureDisposable(instance)
}

// count increments the per-context resolution counter for t.
func (r *resolution) count(t reflect.Type) {
	if r.scope != nil {
		r.scope.stats.inc(t)
		return
	}
	r.provider.stats.inc(t)
}

// statsMap tracks per-service resolution counts for one context.
type statsMap struct {
	mu     sync.Mutex
	counts map[reflect.Type]int64
}

func newStatsMap() *statsMap {
	return &statsMap{
		counts: make(map[reflect.Type]int64),
	}
}

func (s *statsMap) inc(t reflect.Type) {
	s.mu.Lock()
	s.counts[t]++
	s.mu.Unlock()
}

func (s *statsMap) snapshot() map[reflect.Type]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[reflect.Type]int64, len(s.counts))
	for t, n := range s.counts {
		out[t] = n
	}
	return out
}
