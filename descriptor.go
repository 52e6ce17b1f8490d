package dinghy

import (
	"fmt"
	"reflect"

	"github.com/dinghy-di/dinghy/internal/reflection"
)

// Descriptor binds a service identity to its construction recipe and
// lifetime. Exactly one of Constructor, ImplType, or Instance is
// populated. Descriptors are immutable once added to a Collection.
type Descriptor struct {
	// ServiceType is the identity callers request.
	ServiceType reflect.Type

	// Lifetime determines instance caching behavior.
	Lifetime Lifetime

	// Constructor is the analyzed constructor function, nil for instance
	// and type registrations.
	Constructor *reflection.ConstructorInfo

	// ImplType is the implementation type for registrations without a
	// constructor function. Instances are default-constructed and then
	// field-injected.
	ImplType reflect.Type

	// Instance is the fixed instance for instance registrations.
	Instance any

	// IsInstance indicates the descriptor holds a fixed instance.
	IsInstance bool

	// Dependencies are the statically known dependency types: constructor
	// parameters for function registrations, required injectable fields
	// for type registrations. Used by build-time validation.
	Dependencies []reflect.Type
}

// newDescriptor creates a descriptor from a constructor function or a
// fixed instance value.
func newDescriptor(service any, lifetime Lifetime, analyzer *reflection.Analyzer, opts ...AddOption) ([]*Descriptor, error) {
	if service == nil {
		return nil, RegistrationError{Operation: "register", Cause: ErrConstructorNil}
	}

	options := &addOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAddOption(options)
		}
	}

	info, err := analyzer.Analyze(service)
	if err != nil {
		return nil, RegistrationError{Operation: "analyze", Cause: err}
	}

	d := &Descriptor{
		ServiceType: info.ServiceType,
		Lifetime:    lifetime,
	}

	if info.IsFunc {
		d.Constructor = info
		d.Dependencies = info.Parameters
	} else {
		// Fixed instances are singletons by definition.
		d.Instance = service
		d.IsInstance = true
		d.Lifetime = Singleton
	}

	return expandAsTargets(d, options)
}

// newTypeDescriptor creates a descriptor binding serviceType to an
// implementation type with no constructor function. The implementation is
// default-constructed and its tagged fields injected; required fields form
// its dependency list.
func newTypeDescriptor(serviceType, implType reflect.Type, lifetime Lifetime, analyzer *reflection.Analyzer) (*Descriptor, error) {
	if serviceType == nil || implType == nil {
		return nil, RegistrationError{ServiceType: serviceType, Operation: "register", Cause: ErrServiceTypeNil}
	}

	if !implType.AssignableTo(serviceType) {
		return nil, RegistrationError{
			ServiceType: serviceType,
			Operation:   "register",
			Cause:       fmt.Errorf("%s is not assignable to %s", formatType(implType), formatType(serviceType)),
		}
	}

	kind := implType.Kind()
	if kind == reflect.Pointer {
		kind = implType.Elem().Kind()
	}
	if kind != reflect.Struct {
		return nil, RegistrationError{
			ServiceType: serviceType,
			Operation:   "register",
			Cause:       MissingConstructorError{ServiceType: implType},
		}
	}

	deps, err := analyzer.RequiredFieldTypes(implType)
	if err != nil {
		return nil, RegistrationError{ServiceType: serviceType, Operation: "analyze", Cause: err}
	}

	return &Descriptor{
		ServiceType:  serviceType,
		Lifetime:     lifetime,
		ImplType:     implType,
		Dependencies: deps,
	}, nil
}

// expandAsTargets applies As options, producing one descriptor per
// requested service identity. Without As the descriptor keeps the
// implementation's own type as its identity.
func expandAsTargets(d *Descriptor, options *addOptions) ([]*Descriptor, error) {
	if len(options.as) == 0 {
		return []*Descriptor{d}, nil
	}

	descriptors := make([]*Descriptor, 0, len(options.as))
	for _, target := range options.as {
		ifaceType, err := interfaceTypeOf(target)
		if err != nil {
			return nil, RegistrationError{ServiceType: d.ServiceType, Operation: "register", Cause: err}
		}

		if !d.ServiceType.AssignableTo(ifaceType) {
			return nil, RegistrationError{
				ServiceType: ifaceType,
				Operation:   "register",
				Cause:       fmt.Errorf("%s does not implement %s", formatType(d.ServiceType), formatType(ifaceType)),
			}
		}

		aliased := *d
		aliased.ServiceType = ifaceType
		descriptors = append(descriptors, &aliased)
	}

	return descriptors, nil
}

// interfaceTypeOf extracts the interface type from an As target, which
// must be a pointer to an interface, e.g. dinghy.As(new(Reader)).
func interfaceTypeOf(target any) (reflect.Type, error) {
	if target == nil {
		return nil, ErrServiceTypeNil
	}

	t := reflect.TypeOf(target)
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
		return nil, fmt.Errorf("As target must be a pointer to an interface, got %s", t)
	}

	return t.Elem(), nil
}

// Validate checks the descriptor's internal consistency.
func (d *Descriptor) Validate() error {
	if d == nil {
		return ErrDescriptorNil
	}

	if d.ServiceType == nil {
		return RegistrationError{Operation: "validate", Cause: ErrServiceTypeNil}
	}

	if !d.Lifetime.IsValid() {
		return LifetimeError{Value: d.Lifetime}
	}

	populated := 0
	if d.Constructor != nil {
		populated++
	}
	if d.ImplType != nil {
		populated++
	}
	if d.IsInstance {
		populated++
	}
	if populated != 1 {
		return RegistrationError{
			ServiceType: d.ServiceType,
			Operation:   "validate",
			Cause:       fmt.Errorf("descriptor must have exactly one of constructor, implementation type, or instance"),
		}
	}

	if d.IsInstance && d.Lifetime != Singleton {
		return RegistrationError{
			ServiceType: d.ServiceType,
			Operation:   "validate",
			Cause:       fmt.Errorf("instance registrations must be Singleton, got %s", d.Lifetime),
		}
	}

	return nil
}
