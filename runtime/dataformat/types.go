package dataformat

import (
	"fmt"
	"reflect"
)

// Types maps object type names to Go types so that object variables can be
// decoded into concrete values rather than generic maps.
//
// A Types value is populated during client construction and only read
// afterwards; it is not safe for concurrent registration.
type Types struct {
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewTypes creates an empty type registry.
func NewTypes() *Types {
	return &Types{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Register associates name with the type of prototype. Pointer prototypes
// register their element type.
func (t *Types) Register(name string, prototype any) error {
	if name == "" {
		return fmt.Errorf("dataformat: type name is required")
	}
	if prototype == nil {
		return fmt.Errorf("dataformat: prototype for %q is nil", name)
	}
	rt := reflect.TypeOf(prototype)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	t.byName[name] = rt
	t.byType[rt] = name
	return nil
}

// Lookup returns the Go type registered under name.
func (t *Types) Lookup(name string) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	rt, ok := t.byName[name]
	return rt, ok
}

// NameOf returns the registered name for v's type, falling back to the Go
// qualified type name ("pkg/path.Type").
func (t *Types) NameOf(v any) string {
	if v == nil {
		return ""
	}
	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if t != nil {
		if name, ok := t.byType[rt]; ok {
			return name
		}
	}
	if rt.PkgPath() == "" {
		return rt.String()
	}
	return rt.PkgPath() + "." + rt.Name()
}

// decodeTarget returns a pointer to decode into and a function extracting the
// decoded value from it. Unregistered names decode into a generic any.
func (t *Types) decodeTarget(typeName string) (target any, result func() any) {
	if rt, ok := t.Lookup(typeName); ok {
		ptr := reflect.New(rt)
		return ptr.Interface(), func() any { return ptr.Elem().Interface() }
	}
	var generic any
	return &generic, func() any { return generic }
}
