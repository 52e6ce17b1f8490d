package dinghy

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope is a disposable child resolution context. It shares the root
// provider's descriptor store and singleton cache, and exclusively owns a
// scoped instance cache that is released when the scope is closed.
//
// In web applications a scope is typically created per request:
//
//	scope, err := provider.CreateScope(r.Context())
//	defer scope.Close()
//
//	session, err := dinghy.Resolve[*Session](scope)
type Scope interface {
	ServiceResolver

	// ID returns the unique ID of this scope.
	ID() string

	// Context returns the context the scope was created with.
	Context() context.Context

	// CreateScope creates a nested scope sharing the same root.
	CreateScope(ctx context.Context) (Scope, error)

	// ResolutionStats returns a copy of the per-service resolution counts
	// recorded against this scope.
	ResolutionStats() map[reflect.Type]int64

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool

	// Close disposes every disposable instance this scope created, in
	// reverse creation order, and drops the scoped cache. Close is
	// idempotent.
	Close() error
}

type scope struct {
	id     string
	ctx    context.Context
	parent *scope

	provider  *provider
	instances *instanceCache
	stats     *statsMap

	disposables   []DisposableWithContext
	disposablesMu sync.Mutex

	disposed int32
}

// scopeContextKey keys the scope attached to the context returned by
// Scope.Context.
type scopeContextKey struct{}

// FromContext returns the Scope attached to ctx. Handlers running behind a
// scope-per-request middleware use this to reach the request's scope.
func FromContext(ctx context.Context) (Scope, error) {
	if ctx == nil {
		return nil, ErrScopeNotInContext
	}
	s, ok := ctx.Value(scopeContextKey{}).(Scope)
	if !ok {
		return nil, ErrScopeNotInContext
	}
	return s, nil
}

func newScope(p *provider, parent *scope, ctx context.Context) *scope {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &scope{
		id:        uuid.NewString(),
		parent:    parent,
		provider:  p,
		instances: newInstanceCache(),
		stats:     newStatsMap(),
	}
	s.ctx = context.WithValue(ctx, scopeContextKey{}, s)

	p.scopesMu.Lock()
	p.scopes[s.id] = s
	p.scopesMu.Unlock()

	p.options.logf("dinghy: created scope %s", s.id)
	return s
}

func (s *scope) ID() string {
	return s.id
}

func (s *scope) Context() context.Context {
	return s.ctx
}

func (s *scope) IsDisposed() bool {
	return atomic.LoadInt32(&s.disposed) != 0
}

func (s *scope) Resolve(serviceType reflect.Type) (any, error) {
	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}
	if s.provider.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	res := &resolution{provider: s.provider, scope: s}
	return s.provider.observe(serviceType, func() (any, error) {
		return res.ResolveType(serviceType)
	})
}

func (s *scope) CreateScope(ctx context.Context) (Scope, error) {
	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}
	if s.provider.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	return newScope(s.provider, s, ctx), nil
}

func (s *scope) ResolutionStats() map[reflect.Type]int64 {
	return s.stats.snapshot()
}

// captureDisposable records an instance created by this scope for
// disposal on Close.
func (s *scope) captureDisposable(instance any) {
	disposable := asDisposable(instance)
	if disposable == nil {
		return
	}

	s.disposablesMu.Lock()
	s.disposables = append(s.disposables, disposable)
	s.disposablesMu.Unlock()
}

func (s *scope) Close() error {
	if !atomic.CompareAndSwapInt32(&s.disposed, 0, 1) {
		return nil
	}

	s.provider.removeScope(s.id)
	s.provider.options.logf("dinghy: closing scope %s", s.id)

	s.disposablesMu.Lock()
	toDispose := s.disposables
	s.disposables = nil
	s.disposablesMu.Unlock()

	var errs []error

	// Reverse creation order.
	for i := len(toDispose) - 1; i >= 0; i-- {
		if err := toDispose[i].Close(s.ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.instances.clear()

	if len(errs) > 0 {
		return DisposalError{Context: "scope", Errors: errs}
	}
	return nil
}
