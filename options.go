package dinghy

import (
	"reflect"
	"time"
)

// ProviderOptions configures provider behavior. The zero value gives the
// default policy: missing services fail resolution and logging is off.
type ProviderOptions struct {
	// AllowMissing makes Resolve return a nil instance and nil error when
	// no descriptor is registered for the requested type, instead of
	// failing with ErrServiceNotFound.
	AllowMissing bool

	// Log receives diagnostic messages when non-nil. Leaving it nil
	// disables logging.
	Log func(format string, args ...any)

	// OnResolved is called after every successful top-level resolution.
	OnResolved func(serviceType reflect.Type, instance any, duration time.Duration)

	// OnError is called when a top-level resolution fails.
	OnError func(serviceType reflect.Type, err error)
}

func (o *ProviderOptions) logf(format string, args ...any) {
	if o != nil && o.Log != nil {
		o.Log(format, args...)
	}
}

// AddOption configures a single service registration.
type AddOption interface {
	applyAddOption(*addOptions)
}

type addOptions struct {
	as []any
}

type addOptionFunc func(*addOptions)

func (f addOptionFunc) applyAddOption(opts *addOptions) {
	f(opts)
}

// As registers the service under one or more interface identities instead
// of its concrete type. Each target must be a pointer to an interface:
//
//	c.AddSingleton(NewFileStore, dinghy.As(new(Store)))
func As(targets ...any) AddOption {
	return addOptionFunc(func(opts *addOptions) {
		opts.as = append(opts.as, targets...)
	})
}
