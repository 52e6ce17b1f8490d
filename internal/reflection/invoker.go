package reflection

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// Resolver supplies dependency values during construction. The engine
// passes its active resolution context here so that nested resolutions
// share one cycle-detection path and one set of caches.
type Resolver interface {
	ResolveType(t reflect.Type) (any, error)
}

// PanicError is returned when a constructor panics during invocation. The
// panic value and stack are preserved for diagnostics.
type PanicError struct {
	Constructor reflect.Type
	Panic       any
	Stack       []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("constructor %s panicked: %v\n%s", e.Constructor, e.Panic, e.Stack)
}

// Invoker calls analyzed constructors with resolved arguments.
type Invoker struct {
	analyzer *Analyzer
}

// NewInvoker creates an Invoker backed by the given analyzer.
func NewInvoker(analyzer *Analyzer) *Invoker {
	return &Invoker{analyzer: analyzer}
}

// Invoke resolves every parameter of the constructor in declaration order,
// calls it, and returns the produced instance. A constructor error return
// or panic surfaces as an error.
func (iv *Invoker) Invoke(info *ConstructorInfo, resolver Resolver) (any, error) {
	if !info.IsFunc {
		return info.Value.Interface(), nil
	}

	args := make([]reflect.Value, len(info.Parameters))
	for i, paramType := range info.Parameters {
		value, err := resolver.ResolveType(paramType)
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%s): %w", i, paramType, err)
		}

		if value == nil {
			args[i] = reflect.Zero(paramType)
		} else {
			args[i] = reflect.ValueOf(value)
		}
	}

	results, err := call(info, args)
	if err != nil {
		return nil, err
	}

	if info.HasErrorReturn {
		if errVal := results[1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	return results[0].Interface(), nil
}

// Construct builds a zero instance of an implementation type registered
// without a constructor function. Pointer types get a fresh pointee so
// field injection has something to write into.
func (iv *Invoker) Construct(implType reflect.Type) (any, error) {
	if implType == nil {
		return nil, fmt.Errorf("implementation type cannot be nil")
	}

	switch implType.Kind() {
	case reflect.Pointer:
		if implType.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("implementation type %s must point to a struct", implType)
		}
		return reflect.New(implType.Elem()).Interface(), nil
	case reflect.Struct:
		return reflect.New(implType).Elem().Interface(), nil
	default:
		return nil, fmt.Errorf("implementation type %s has no construction path", implType)
	}
}

func call(info *ConstructorInfo, args []reflect.Value) (results []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{
				Constructor: info.Type,
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	return info.Value.Call(args), nil
}
