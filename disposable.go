package dinghy

import "context"

// Disposable is implemented by services that hold resources needing
// cleanup. The owning scope (or the root provider, for singletons) calls
// Close when it is disposed.
type Disposable interface {
	Close() error
}

// DisposableWithContext is implemented by services whose cleanup should
// respect context cancellation, e.g. for graceful shutdown deadlines.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// contextDisposable adapts Disposable to the context-aware form used
// internally for disposal tracking.
type contextDisposable struct {
	inner Disposable
}

func (d contextDisposable) Close(ctx context.Context) error {
	return d.inner.Close()
}

// asDisposable returns the context-aware disposal hook for an instance, or
// nil when the instance needs no cleanup.
func asDisposable(instance any) DisposableWithContext {
	switch v := instance.(type) {
	case DisposableWithContext:
		return v
	case Disposable:
		return contextDisposable{inner: v}
	default:
		return nil
	}
}
