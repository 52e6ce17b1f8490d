package dinghy

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dinghy-di/dinghy/internal/reflection"
)

// ServiceResolver is the resolution surface shared by the root Provider
// and scopes.
type ServiceResolver interface {
	// Resolve returns a fully constructed, field-injected instance of the
	// requested service type.
	Resolve(serviceType reflect.Type) (any, error)
}

// Provider is the root resolution context built from a Collection. It owns
// the descriptor store and the singleton cache for its whole lifetime;
// scopes created from it share both.
type Provider interface {
	ServiceResolver

	// CreateScope creates a child resolution context with its own scoped
	// instance cache and resolution counters.
	CreateScope(ctx context.Context) (Scope, error)

	// Contains reports whether a service type is registered.
	Contains(serviceType reflect.Type) bool

	// ResolutionStats returns a copy of the per-service resolution counts
	// recorded against the root context.
	ResolutionStats() map[reflect.Type]int64

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool

	// Close disposes every live scope, then every disposable singleton in
	// reverse creation order. Close is idempotent.
	Close() error
}

type provider struct {
	descriptors []*Descriptor
	index       map[reflect.Type]*Descriptor
	analyzer    *reflection.Analyzer
	invoker     *reflection.Invoker
	options     *ProviderOptions

	singletons *instanceCache
	stats      *statsMap

	scopes   map[string]*scope
	scopesMu sync.Mutex

	disposables   []DisposableWithContext
	disposablesMu sync.Mutex

	disposed int32
}

func newProvider(descriptors []*Descriptor, analyzer *reflection.Analyzer, options *ProviderOptions) *provider {
	if options == nil {
		options = &ProviderOptions{}
	}

	// First-match lookup index; duplicate registrations for a type are
	// shadowed by the earliest one.
	index := make(map[reflect.Type]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		if _, ok := index[d.ServiceType]; !ok {
			index[d.ServiceType] = d
		}
	}

	return &provider{
		descriptors: descriptors,
		index:       index,
		analyzer:    analyzer,
		invoker:     reflection.NewInvoker(analyzer),
		options:     options,
		singletons:  newInstanceCache(),
		stats:       newStatsMap(),
		scopes:      make(map[string]*scope),
	}
}

// lookup returns the first-registered descriptor for t, or nil.
func (p *provider) lookup(t reflect.Type) *Descriptor {
	return p.index[t]
}

func (p *provider) Resolve(serviceType reflect.Type) (any, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	res := &resolution{provider: p}
	return p.observe(serviceType, func() (any, error) {
		return res.ResolveType(serviceType)
	})
}

// observe runs fn and feeds the configured callbacks and log sink.
func (p *provider) observe(serviceType reflect.Type, fn func() (any, error)) (any, error) {
	start := time.Now()

	instance, err := fn()

	if err != nil {
		p.options.logf("dinghy: resolve %s failed: %v", formatType(serviceType), err)
		if p.options.OnError != nil {
			p.options.OnError(serviceType, err)
		}
		return nil, err
	}

	if p.options.OnResolved != nil {
		p.options.OnResolved(serviceType, instance, time.Since(start))
	}
	return instance, nil
}

func (p *provider) Contains(serviceType reflect.Type) bool {
	return p.index[serviceType] != nil
}

func (p *provider) ResolutionStats() map[reflect.Type]int64 {
	return p.stats.snapshot()
}

func (p *provider) IsDisposed() bool {
	return atomic.LoadInt32(&p.disposed) != 0
}

func (p *provider) CreateScope(ctx context.Context) (Scope, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	return newScope(p, nil, ctx), nil
}

// captureDisposable records a root-owned instance for disposal when the
// provider is closed.
func (p *provider) captureDisposable(instance any) {
	disposable := asDisposable(instance)
	if disposable == nil {
		return
	}

	p.disposablesMu.Lock()
	p.disposables = append(p.disposables, disposable)
	p.disposablesMu.Unlock()
}

func (p *provider) Close() error {
	if !atomic.CompareAndSwapInt32(&p.disposed, 0, 1) {
		return nil
	}

	p.options.logf("dinghy: closing provider")

	var errs []error

	// Close remaining scopes before releasing singletons they may still
	// reference.
	p.scopesMu.Lock()
	live := make([]*scope, 0, len(p.scopes))
	for _, s := range p.scopes {
		live = append(live, s)
	}
	p.scopesMu.Unlock()

	for _, s := range live {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	p.disposablesMu.Lock()
	toDispose := p.disposables
	p.disposables = nil
	p.disposablesMu.Unlock()

	// Reverse creation order.
	for i := len(toDispose) - 1; i >= 0; i-- {
		if err := toDispose[i].Close(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}

	p.singletons.clear()

	if len(errs) > 0 {
		return DisposalError{Context: "provider", Errors: errs}
	}
	return nil
}

// removeScope detaches a closed scope from the provider's registry.
func (p *provider) removeScope(id string) {
	p.scopesMu.Lock()
	delete(p.scopes, id)
	p.scopesMu.Unlock()
}

// Resolve resolves a service by its static type:
//
//	logger, err := dinghy.Resolve[*Logger](provider)
func Resolve[T any](r ServiceResolver) (T, error) {
	var zero T

	serviceType := reflect.TypeOf((*T)(nil)).Elem()
	instance, err := r.Resolve(serviceType)
	if err != nil {
		return zero, err
	}
	if instance == nil {
		return zero, nil
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, ResolutionError{
			ServiceType: serviceType,
			Cause:       fmt.Errorf("resolved instance of type %T is not assignable to %s", instance, formatType(serviceType)),
		}
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error. Intended for
// application startup paths where a missing service is fatal.
func MustResolve[T any](r ServiceResolver) T {
	instance, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return instance
}
