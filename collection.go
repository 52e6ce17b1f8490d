package dinghy

import (
	"reflect"

	"github.com/dinghy-di/dinghy/internal/reflection"
)

// Collection is the ordered registry of service descriptors built into a
// Provider. Services are registered with their lifetimes, then Build runs
// lifetime validation and produces the resolution engine.
//
// Collection is NOT thread-safe; configure it from a single goroutine
// before building. Lookup between duplicate registrations for the same
// service type returns the FIRST one added, so registration order matters.
//
// Example:
//
//	c := dinghy.NewCollection()
//	c.AddSingleton(NewLogger)
//	c.AddScoped(NewSession)
//
//	provider, err := c.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
type Collection interface {
	// Build creates a Provider from the registered services using default
	// options. Build validates lifetimes and fails on any singleton that
	// transitively depends on a scoped service.
	Build() (Provider, error)

	// BuildWithOptions creates a Provider with custom options.
	BuildWithOptions(options *ProviderOptions) (Provider, error)

	// Add registers a constructor function or fixed instance with an
	// explicit lifetime.
	Add(lifetime Lifetime, constructor any, opts ...AddOption) error

	// AddSingleton registers a service with singleton lifetime: one
	// instance shared across all resolutions from the same root.
	AddSingleton(constructor any, opts ...AddOption) error

	// AddScoped registers a service with scoped lifetime: one instance
	// per scope.
	AddScoped(constructor any, opts ...AddOption) error

	// AddTransient registers a service with transient lifetime: a new
	// instance on every resolution.
	AddTransient(constructor any, opts ...AddOption) error

	// AddInstance registers a pre-built instance. Instance registrations
	// are implicitly Singleton.
	AddInstance(instance any, opts ...AddOption) error

	// Register binds a service identity to an implementation type with no
	// constructor function. The implementation is default-constructed and
	// its `inject`-tagged fields are resolved after construction.
	Register(serviceType, implType reflect.Type, lifetime Lifetime) error

	// Contains reports whether a service type is registered.
	Contains(serviceType reflect.Type) bool

	// Count returns the number of registered descriptors.
	Count() int

	// Descriptors returns a snapshot of all registered descriptors in
	// registration order.
	Descriptors() []*Descriptor
}

type collection struct {
	descriptors []*Descriptor
	analyzer    *reflection.Analyzer
	built       bool
}

// NewCollection creates an empty Collection.
func NewCollection() Collection {
	return &collection{
		analyzer: reflection.New(),
	}
}

func (c *collection) Add(lifetime Lifetime, constructor any, opts ...AddOption) error {
	if !lifetime.IsValid() {
		return LifetimeError{Value: lifetime}
	}

	descriptors, err := newDescriptor(constructor, lifetime, c.analyzer, opts...)
	if err != nil {
		return err
	}

	return c.append(descriptors...)
}

func (c *collection) AddSingleton(constructor any, opts ...AddOption) error {
	return c.Add(Singleton, constructor, opts...)
}

func (c *collection) AddScoped(constructor any, opts ...AddOption) error {
	return c.Add(Scoped, constructor, opts...)
}

func (c *collection) AddTransient(constructor any, opts ...AddOption) error {
	return c.Add(Transient, constructor, opts...)
}

func (c *collection) AddInstance(instance any, opts ...AddOption) error {
	if instance == nil {
		return RegistrationError{Operation: "register", Cause: ErrConstructorNil}
	}

	if reflect.TypeOf(instance).Kind() == reflect.Func {
		return RegistrationError{
			ServiceType: reflect.TypeOf(instance),
			Operation:   "register",
			Cause:       ErrInstanceIsFunc,
		}
	}

	descriptors, err := newDescriptor(instance, Singleton, c.analyzer, opts...)
	if err != nil {
		return err
	}

	return c.append(descriptors...)
}

func (c *collection) Register(serviceType, implType reflect.Type, lifetime Lifetime) error {
	if !lifetime.IsValid() {
		return LifetimeError{Value: lifetime}
	}

	descriptor, err := newTypeDescriptor(serviceType, implType, lifetime, c.analyzer)
	if err != nil {
		return err
	}

	return c.append(descriptor)
}

func (c *collection) append(descriptors ...*Descriptor) error {
	if c.built {
		return RegistrationError{Operation: "register", Cause: ErrCollectionBuilt}
	}

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return err
		}
	}

	c.descriptors = append(c.descriptors, descriptors...)
	return nil
}

func (c *collection) Contains(serviceType reflect.Type) bool {
	for _, d := range c.descriptors {
		if d.ServiceType == serviceType {
			return true
		}
	}
	return false
}

func (c *collection) Count() int {
	return len(c.descriptors)
}

func (c *collection) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

func (c *collection) Build() (Provider, error) {
	return c.BuildWithOptions(nil)
}

func (c *collection) BuildWithOptions(options *ProviderOptions) (Provider, error) {
	if err := validateLifetimes(c.descriptors); err != nil {
		return nil, err
	}

	c.built = true
	return newProvider(c.descriptors, c.analyzer, options), nil
}

// AddType registers TImpl as the implementation of TService with the given
// lifetime, without a constructor function. TImpl is default-constructed
// and its `inject`-tagged fields are resolved after construction.
//
//	dinghy.AddType[Store, *FileStore](c, dinghy.Scoped)
func AddType[TService, TImpl any](c Collection, lifetime Lifetime) error {
	serviceType := reflect.TypeOf((*TService)(nil)).Elem()
	implType := reflect.TypeOf((*TImpl)(nil)).Elem()
	return c.Register(serviceType, implType, lifetime)
}
