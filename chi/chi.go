// Package chi wires dinghy request scoping into Chi HTTP services.
//
// ScopeMiddleware opens one scope per request, attaches it to the request
// context, and closes it when the request completes. Handle resolves a
// controller from that scope and invokes one of its methods. Both share a
// single option surface: every failure path (scope creation, missing
// scope, controller resolution, seed errors, recovered panics) flows
// through one configurable error handler, and diagnostics flow through a
// log sink in the same callback style as dinghy.ProviderOptions.
//
//	provider, _ := collection.Build()
//
//	r := chi.NewRouter()
//	r.Use(dinghychi.ScopeMiddleware(provider))
//
//	r.Post("/login", dinghychi.Handle((*AuthController).Login))
//	r.Get("/users/{id}", dinghychi.Handle((*UserController).GetByID))
package chi

import (
	"fmt"
	"net/http"

	"github.com/dinghy-di/dinghy"
)

// PanicError wraps a panic recovered from a wrapped handler so it can be
// reported through the adapter's error handler like any other failure.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Config collects the adapter's hooks. The zero value responds to every
// failure with a bare 500 and logs nothing.
type Config struct {
	// OnError handles every failure: scope creation, missing scope,
	// controller resolution, seed errors, and (with Recover) panics
	// wrapped in PanicError. Nil means a plain 500 response.
	OnError func(http.ResponseWriter, *http.Request, error)

	// OnCloseError receives scope close failures. The response has
	// already been written by then, so there is nothing to send.
	OnCloseError func(*http.Request, error)

	// Log receives diagnostic messages when non-nil, in the same form as
	// dinghy.ProviderOptions.Log. Nil disables logging.
	Log func(format string, args ...any)

	// Seeds run after scope creation, before the wrapped handler. They
	// initialize the fresh scope from request data.
	Seeds []func(dinghy.Scope, *http.Request) error

	// Recover converts handler panics into PanicError and routes them to
	// OnError instead of letting them unwind into the server.
	Recover bool
}

// Option configures ScopeMiddleware and Handle.
type Option func(*Config)

// WithErrorHandler sets the handler for every request failure path.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.OnError = h
	}
}

// WithCloseErrorHandler sets the handler for scope close failures.
func WithCloseErrorHandler(h func(*http.Request, error)) Option {
	return func(c *Config) {
		c.OnCloseError = h
	}
}

// WithLog sets the diagnostic log sink.
func WithLog(log func(format string, args ...any)) Option {
	return func(c *Config) {
		c.Log = log
	}
}

// WithSeed adds a seed function that runs after scope creation. Multiple
// seeds run in the order they were added.
func WithSeed(seed func(dinghy.Scope, *http.Request) error) Option {
	return func(c *Config) {
		c.Seeds = append(c.Seeds, seed)
	}
}

// WithRecover enables panic recovery in Handle.
func WithRecover(enabled bool) Option {
	return func(c *Config) {
		c.Recover = enabled
	}
}

func newConfig(opts []Option) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *Config) logf(format string, args ...any) {
	if c.Log != nil {
		c.Log(format, args...)
	}
}

// fail reports err through the configured error handler, defaulting to a
// bare 500 response.
func (c *Config) fail(w http.ResponseWriter, r *http.Request, err error) {
	c.logf("dinghy/chi: %s %s failed: %v", r.Method, r.URL.Path, err)
	if c.OnError != nil {
		c.OnError(w, r, err)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (c *Config) closeFailed(r *http.Request, err error) {
	c.logf("dinghy/chi: closing scope for %s %s failed: %v", r.Method, r.URL.Path, err)
	if c.OnCloseError != nil {
		c.OnCloseError(r, err)
	}
}

// ScopeMiddleware opens a scope for each request. The scope rides the
// request context (retrieve it with dinghy.FromContext) and is closed
// when the request completes.
func ScopeMiddleware(provider dinghy.Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := provider.CreateScope(r.Context())
			if err != nil {
				cfg.fail(w, r, err)
				return
			}

			defer func() {
				if err := scope.Close(); err != nil {
					cfg.closeFailed(r, err)
				}
			}()

			// Scope context carries the scope itself.
			r = r.WithContext(scope.Context())

			for _, seed := range cfg.Seeds {
				if err := seed(scope, r); err != nil {
					cfg.fail(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Handle wraps a controller method for type-safe resolution from the
// request scope. The controller type T is resolved from the scope that
// ScopeMiddleware attached to the request context.
//
//	r.Get("/users/{id}", dinghychi.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Recover {
			defer func() {
				if v := recover(); v != nil {
					cfg.fail(w, r, PanicError{Value: v})
				}
			}()
		}

		scope, err := dinghy.FromContext(r.Context())
		if err != nil {
			cfg.fail(w, r, err)
			return
		}

		controller, err := dinghy.Resolve[T](scope)
		if err != nil {
			cfg.fail(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
