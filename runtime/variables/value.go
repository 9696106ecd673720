package variables

import (
	"fmt"
	"time"
)

// TypedValue is a variable value together with its declared kind.
type TypedValue interface {
	// Type returns the declared kind; TypeUntyped when the kind is derived
	// from the contained Go value.
	Type() ValueType

	// Value returns the contained Go value. A nil result on a typed value is
	// a typed null.
	Value() any
}

// PrimitiveValue is a value of one of the primitive kinds.
type PrimitiveValue struct {
	typ   ValueType
	value any
}

// Type implements TypedValue.
func (v PrimitiveValue) Type() ValueType { return v.typ }

// Value implements TypedValue.
func (v PrimitiveValue) Value() any { return v.value }

func (v PrimitiveValue) String() string {
	return fmt.Sprintf("%s(%v)", v.typ, v.value)
}

// NullValue returns the untyped null.
func NullValue() PrimitiveValue { return PrimitiveValue{typ: TypeNull} }

// BooleanValue returns a Boolean value.
func BooleanValue(b bool) PrimitiveValue { return PrimitiveValue{typ: TypeBoolean, value: b} }

// ShortValue returns a Short value.
func ShortValue(n int16) PrimitiveValue { return PrimitiveValue{typ: TypeShort, value: n} }

// IntegerValue returns an Integer value.
func IntegerValue(n int32) PrimitiveValue { return PrimitiveValue{typ: TypeInteger, value: n} }

// LongValue returns a Long value.
func LongValue(n int64) PrimitiveValue { return PrimitiveValue{typ: TypeLong, value: n} }

// DoubleValue returns a Double value.
func DoubleValue(f float64) PrimitiveValue { return PrimitiveValue{typ: TypeDouble, value: f} }

// StringValue returns a String value.
func StringValue(s string) PrimitiveValue { return PrimitiveValue{typ: TypeString, value: s} }

// DateValue returns a Date value.
func DateValue(t time.Time) PrimitiveValue { return PrimitiveValue{typ: TypeDate, value: t} }

// BytesValue returns a Bytes value.
func BytesValue(b []byte) PrimitiveValue { return PrimitiveValue{typ: TypeBytes, value: b} }

// TypedNull returns a null value declared with kind t, e.g. a null String.
func TypedNull(t ValueType) PrimitiveValue { return PrimitiveValue{typ: t} }

// NewTypedValue declares v with an explicit kind. It is mostly useful for
// kinds without a dedicated constructor; a kind that does not fit v leaves
// the value without a converter.
func NewTypedValue(t ValueType, v any) PrimitiveValue { return PrimitiveValue{typ: t, value: v} }

// UntypedValue wraps a Go value whose kind is resolved by inspecting it.
type UntypedValue struct {
	value any
}

// Untyped wraps v as an untyped value.
func Untyped(v any) UntypedValue { return UntypedValue{value: v} }

// Type implements TypedValue.
func (UntypedValue) Type() ValueType { return TypeUntyped }

// Value implements TypedValue.
func (v UntypedValue) Value() any { return v.value }

func (v UntypedValue) String() string {
	return fmt.Sprintf("Untyped(%v)", v.value)
}

// ObjectValue is a complex value serialized in a data format. It holds the
// deserialized Go value, the serialized text, or both.
type ObjectValue struct {
	value          any
	serialized     string
	objectTypeName string
	format         string
	deserialized   bool
}

// ObjectOption configures an ObjectValue.
type ObjectOption func(*ObjectValue)

// WithSerializationFormat requests a specific data format, e.g.
// "application/json". Without it the registry's default format wins.
func WithSerializationFormat(format string) ObjectOption {
	return func(o *ObjectValue) { o.format = format }
}

// WithObjectTypeName overrides the object type name recorded on the wire.
func WithObjectTypeName(name string) ObjectOption {
	return func(o *ObjectValue) { o.objectTypeName = name }
}

// Object wraps a Go value to be serialized as an object variable.
func Object(v any, opts ...ObjectOption) *ObjectValue {
	o := &ObjectValue{value: v, deserialized: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SerializedObject wraps text that is already serialized. It is sent as-is
// and should carry its format and type name.
func SerializedObject(serialized string, opts ...ObjectOption) *ObjectValue {
	o := &ObjectValue{serialized: serialized}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Type implements TypedValue.
func (*ObjectValue) Type() ValueType { return TypeObject }

// Value returns the deserialized Go value, or nil when the object is only
// available in serialized form.
func (o *ObjectValue) Value() any { return o.value }

// IsDeserialized reports whether Value holds the deserialized object.
func (o *ObjectValue) IsDeserialized() bool { return o.deserialized }

// SerializedValue returns the serialized text, if known.
func (o *ObjectValue) SerializedValue() string { return o.serialized }

// ObjectTypeName returns the object type name.
func (o *ObjectValue) ObjectTypeName() string { return o.objectTypeName }

// SerializationFormat returns the requested or recorded data format.
func (o *ObjectValue) SerializationFormat() string { return o.format }

func (o *ObjectValue) String() string {
	if o.deserialized {
		return fmt.Sprintf("Object(%v)", o.value)
	}
	return fmt.Sprintf("Object[%s](%s)", o.format, o.serialized)
}
