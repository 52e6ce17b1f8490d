package dinghy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors. These are base errors wrapped by the typed errors below;
// match them with errors.Is.
var (
	// Resolution errors.
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceTypeNil  = errors.New("service type cannot be nil")
	ErrScopedFromRoot  = errors.New("scoped service cannot be resolved from the root provider")

	// Lifecycle errors.
	ErrProviderDisposed  = errors.New("provider has been disposed")
	ErrScopeDisposed     = errors.New("scope has been disposed")
	ErrScopeNotInContext = errors.New("no scope attached to context")

	// Registration errors.
	ErrConstructorNil  = errors.New("constructor cannot be nil")
	ErrInstanceIsFunc  = errors.New("instance cannot be a function; register constructors with Add or AddSingleton")
	ErrDescriptorNil   = errors.New("descriptor cannot be nil")
	ErrCollectionBuilt = errors.New("collection has already been built")
)

var (
	_ error = LifetimeError{}
	_ error = LifetimeConflictError{}
	_ error = ResolutionError{}
	_ error = RegistrationError{}
	_ error = MissingConstructorError{}
	_ error = ConstructorInvocationError{}
	_ error = FieldInjectionError{}
	_ error = CircularDependencyError{}
	_ error = DisposalError{}
)

// LifetimeError indicates an invalid service lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// LifetimeConflictError indicates a service has an invalid dependency due
// to lifetime constraints: a Singleton service depending, directly or
// transitively, on a Scoped service. Raised when the collection is built,
// never during resolution.
type LifetimeConflictError struct {
	ServiceType        reflect.Type
	ServiceLifetime    Lifetime
	DependencyType     reflect.Type
	DependencyLifetime Lifetime
}

func (e LifetimeConflictError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("lifetime conflict: %s (%s) cannot depend on %s (%s)\n\n",
		formatType(e.ServiceType), e.ServiceLifetime,
		formatType(e.DependencyType), e.DependencyLifetime))

	b.WriteString("Singleton services are created once and live for the lifetime of the root provider.\n")
	b.WriteString("Scoped services are created per-scope; a singleton capturing one scope's instance\n")
	b.WriteString("would leak it across every other scope.\n\n")

	b.WriteString("To resolve this:\n")
	b.WriteString(fmt.Sprintf("  • Change %s to Scoped lifetime\n", formatType(e.ServiceType)))
	b.WriteString(fmt.Sprintf("  • Change %s to Singleton lifetime\n", formatType(e.DependencyType)))

	return b.String()
}

// ResolutionError wraps errors that occur while resolving a service,
// carrying the requested service identity.
type ResolutionError struct {
	ServiceType reflect.Type
	Cause       error
}

func (e ResolutionError) Error() string {
	if errors.Is(e.Cause, ErrServiceNotFound) {
		return fmt.Sprintf("service not found: %s (register it before building the provider)", formatType(e.ServiceType))
	}
	return fmt.Sprintf("failed to resolve %s: %v", formatType(e.ServiceType), e.Cause)
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// RegistrationError wraps errors during service registration.
type RegistrationError struct {
	ServiceType reflect.Type
	Operation   string // "register", "analyze", "validate"
	Cause       error
}

func (e RegistrationError) Error() string {
	if e.ServiceType == nil {
		return fmt.Sprintf("failed to %s service: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, formatType(e.ServiceType), e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// MissingConstructorError indicates an implementation has no usable
// construction path.
type MissingConstructorError struct {
	ServiceType reflect.Type
	Cause       error
}

func (e MissingConstructorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no usable construction path for %s: %v", formatType(e.ServiceType), e.Cause)
	}
	return fmt.Sprintf("no usable construction path for %s", formatType(e.ServiceType))
}

func (e MissingConstructorError) Unwrap() error {
	return e.Cause
}

// ConstructorInvocationError indicates a constructor returned an error or
// panicked while being invoked.
type ConstructorInvocationError struct {
	ServiceType reflect.Type
	Constructor reflect.Type
	Cause       error
}

func (e ConstructorInvocationError) Error() string {
	return fmt.Sprintf("constructor %s for %s failed: %v",
		formatType(e.Constructor), formatType(e.ServiceType), e.Cause)
}

func (e ConstructorInvocationError) Unwrap() error {
	return e.Cause
}

// FieldInjectionError indicates a required injectable field could not be
// satisfied after construction.
type FieldInjectionError struct {
	ServiceType reflect.Type
	Field       string
	Cause       error
}

func (e FieldInjectionError) Error() string {
	return fmt.Sprintf("failed to inject field %s of %s: %v", e.Field, formatType(e.ServiceType), e.Cause)
}

func (e FieldInjectionError) Unwrap() error {
	return e.Cause
}

// CircularDependencyError indicates a service transitively requires itself
// during construction. Chain holds the full path, ending with the repeated
// service (e.g. A, B, C, A).
type CircularDependencyError struct {
	Chain []reflect.Type
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected: ")

	for i, t := range e.Chain {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(formatType(t))
	}

	b.WriteString("\n\nTo resolve this:\n")
	b.WriteString("  • Use an interface to break the dependency\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

// DisposalError aggregates errors from disposing cached instances.
type DisposalError struct {
	Context string // "provider" or "scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		b.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return b.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
