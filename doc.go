// Package dinghy is a lifetime-aware dependency injection container.
//
// Services are registered against a Collection with one of three
// lifetimes — Singleton (one instance per root provider), Scoped (one
// instance per scope), or Transient (a new instance per resolution) — and
// the built Provider supplies fully wired object graphs on demand.
// Constructor parameters are resolved recursively in declaration order,
// and `inject`-tagged struct fields are populated after construction.
//
// Building the provider validates the configuration: a singleton that
// transitively depends on a scoped service fails the build, and circular
// constructor dependencies fail at resolution time with the full chain.
//
//	c := dinghy.NewCollection()
//	c.AddSingleton(NewLogger)
//	c.AddScoped(NewSession, dinghy.As(new(Session)))
//	c.AddTransient(NewRequestID)
//
//	provider, err := c.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	scope, _ := provider.CreateScope(ctx)
//	defer scope.Close()
//
//	session, err := dinghy.Resolve[Session](scope)
package dinghy
