// Package variables converts between native Go values and the engine's wire
// representation of process variables.
//
// On the wire every variable is a Field: a type name, a raw value and
// optional value info (serialization format, object type name). In Go a
// variable is a TypedValue whose ValueType names one of a small, fixed set of
// kinds. Converters translate one kind in both directions and a Registry
// resolves which converter handles a given value or field.
package variables

import (
	"math"
	"time"
)

// ValueType identifies the kind of a variable. The string value is the type
// name used on the wire.
type ValueType string

// Value kinds understood by the engine.
const (
	// TypeUntyped marks a value whose kind is derived from the Go value it holds.
	TypeUntyped ValueType = ""
	TypeNull    ValueType = "Null"
	TypeBoolean ValueType = "Boolean"
	TypeShort   ValueType = "Short"
	TypeInteger ValueType = "Integer"
	TypeLong    ValueType = "Long"
	TypeDouble  ValueType = "Double"
	TypeString  ValueType = "String"
	TypeDate    ValueType = "Date"
	TypeBytes   ValueType = "Bytes"
	TypeObject  ValueType = "Object"
	// TypeNumber is the abstract parent of the numeric kinds. Values declared
	// with it cannot be serialized.
	TypeNumber ValueType = "Number"
)

// String returns the wire name, or "Untyped" for TypeUntyped.
func (t ValueType) String() string {
	if t == TypeUntyped {
		return "Untyped"
	}
	return string(t)
}

// IsPrimitive reports whether the kind has a single, unambiguous wire form.
func (t ValueType) IsPrimitive() bool {
	switch t {
	case TypeNull, TypeBoolean, TypeShort, TypeInteger, TypeLong, TypeDouble,
		TypeString, TypeDate, TypeBytes:
		return true
	default:
		return false
	}
}

// IsAbstract reports whether the kind cannot be instantiated.
func (t ValueType) IsAbstract() bool {
	return t == TypeNumber
}

// KindOf returns the primitive kind a native Go value maps to. The second
// result is false for values that are only candidates for object converters.
func KindOf(v any) (ValueType, bool) {
	switch n := v.(type) {
	case nil:
		return TypeNull, true
	case bool:
		return TypeBoolean, true
	case int8, int16, uint8:
		return TypeShort, true
	case int32, uint16:
		return TypeInteger, true
	case int, int64, uint32:
		return TypeLong, true
	case uint:
		return unsignedKind(uint64(n))
	case uint64:
		return unsignedKind(n)
	case float32, float64:
		return TypeDouble, true
	case string:
		return TypeString, true
	case time.Time:
		return TypeDate, true
	case []byte:
		return TypeBytes, true
	default:
		return TypeObject, false
	}
}

// unsignedKind maps uint and uint64 values to Long when they fit in an
// int64. Larger values are left to object converters.
func unsignedKind(n uint64) (ValueType, bool) {
	if n > math.MaxInt64 {
		return TypeObject, false
	}
	return TypeLong, true
}
