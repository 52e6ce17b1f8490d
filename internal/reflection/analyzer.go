// Package reflection analyzes constructors and implementation types so the
// resolution engine can wire dependencies without repeated introspection.
// Analysis results are cached per constructor and per type.
package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

// TagKey is the struct tag that marks a field as injectable. A bare tag
// (`inject:""`) marks a required field; `inject:"optional"` marks a field
// that is left unset when its type cannot be resolved.
const TagKey = "inject"

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ConstructorInfo contains analyzed information about a constructor
// function or a fixed instance value.
type ConstructorInfo struct {
	// Type is the function type for constructors, or the value type for
	// fixed instances.
	Type reflect.Type

	// Value is the reflected constructor or instance.
	Value reflect.Value

	// IsFunc is true when the constructor is a function.
	IsFunc bool

	// ServiceType is the type the constructor produces: the first return
	// value for functions, the value type for instances.
	ServiceType reflect.Type

	// Parameters are the declared dependency types in declaration order.
	Parameters []reflect.Type

	// HasErrorReturn is true when the constructor's last return is error.
	HasErrorReturn bool
}

// Field describes a single injectable field of an implementation struct.
type Field struct {
	// Index is the field index within the struct.
	Index int

	// Name is the field name, used in diagnostics.
	Name string

	// Type is the declared field type to resolve.
	Type reflect.Type

	// Optional indicates the field is left unset when resolution fails.
	Optional bool
}

// Analyzer performs reflection-based analysis of constructors and
// implementation types, caching results for reuse.
type Analyzer struct {
	mu     sync.RWMutex
	ctors  map[uintptr]*ConstructorInfo
	fields map[reflect.Type][]Field
}

// New creates a new Analyzer with empty caches.
func New() *Analyzer {
	return &Analyzer{
		ctors:  make(map[uintptr]*ConstructorInfo),
		fields: make(map[reflect.Type][]Field),
	}
}

// Analyze inspects a constructor function or instance value and returns its
// construction descriptor. Repeated calls for the same constructor return
// the cached result.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(constructor)
	if !val.IsValid() || (val.Kind() == reflect.Func && val.IsNil()) {
		return nil, fmt.Errorf("constructor cannot be nil")
	}
	if val.Kind() == reflect.Pointer && val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be a nil pointer")
	}

	typ := val.Type()

	if typ.Kind() != reflect.Func {
		// Fixed instance; nothing recursive to analyze.
		return &ConstructorInfo{
			Type:        typ,
			Value:       val,
			ServiceType: typ,
		}, nil
	}

	cacheKey := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.ctors[cacheKey]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &ConstructorInfo{
		Type:   typ,
		Value:  val,
		IsFunc: true,
	}

	if typ.IsVariadic() {
		return nil, fmt.Errorf("variadic constructors are not supported")
	}

	if err := analyzeReturns(info); err != nil {
		return nil, err
	}

	info.Parameters = make([]reflect.Type, typ.NumIn())
	for i := range info.Parameters {
		info.Parameters[i] = typ.In(i)
	}

	a.mu.Lock()
	a.ctors[cacheKey] = info
	a.mu.Unlock()

	return info, nil
}

// analyzeReturns validates constructor return values. Supported shapes are
// func(...) T and func(...) (T, error).
func analyzeReturns(info *ConstructorInfo) error {
	typ := info.Type

	switch typ.NumOut() {
	case 0:
		return fmt.Errorf("constructor must return a value")
	case 1:
		if typ.Out(0) == errType {
			return fmt.Errorf("constructor must return a value besides error")
		}
		info.ServiceType = typ.Out(0)
	case 2:
		if typ.Out(1) != errType {
			return fmt.Errorf("second return value must be error, got %s", typ.Out(1))
		}
		if typ.Out(0) == errType {
			return fmt.Errorf("first return value cannot be error")
		}
		info.ServiceType = typ.Out(0)
		info.HasErrorReturn = true
	default:
		return fmt.Errorf("constructor must return at most two values, got %d", typ.NumOut())
	}

	return nil
}

// InjectionFields returns the injectable fields of an implementation type.
// The type may be a struct or pointer to struct; non-struct types have no
// injectable fields. A tagged unexported field is an error because it can
// never be set.
func (a *Analyzer) InjectionFields(t reflect.Type) ([]Field, error) {
	if t == nil {
		return nil, fmt.Errorf("type cannot be nil")
	}

	structType := t
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, nil
	}

	a.mu.RLock()
	if cached, ok := a.fields[structType]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	fields := make([]Field, 0)
	for i := 0; i < structType.NumField(); i++ {
		sf := structType.Field(i)

		tag, ok := sf.Tag.Lookup(TagKey)
		if !ok {
			continue
		}

		if !sf.IsExported() {
			return nil, fmt.Errorf("field %s.%s is tagged %q but unexported", structType, sf.Name, TagKey)
		}

		optional, err := parseInjectTag(tag)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", structType, sf.Name, err)
		}

		fields = append(fields, Field{
			Index:    i,
			Name:     sf.Name,
			Type:     sf.Type,
			Optional: optional,
		})
	}

	a.mu.Lock()
	a.fields[structType] = fields
	a.mu.Unlock()

	return fields, nil
}

// RequiredFieldTypes returns the types of the non-optional injectable
// fields of t, in declaration order. These participate in build-time
// lifetime validation the same way constructor parameters do.
func (a *Analyzer) RequiredFieldTypes(t reflect.Type) ([]reflect.Type, error) {
	fields, err := a.InjectionFields(t)
	if err != nil {
		return nil, err
	}

	types := make([]reflect.Type, 0, len(fields))
	for _, f := range fields {
		if !f.Optional {
			types = append(types, f.Type)
		}
	}
	return types, nil
}

func parseInjectTag(tag string) (optional bool, err error) {
	switch tag {
	case "":
		return false, nil
	case "optional":
		return true, nil
	default:
		return false, fmt.Errorf("unknown %s tag value %q", TagKey, tag)
	}
}
