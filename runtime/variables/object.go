package variables

import (
	"fmt"

	"github.com/AltairaLabs/TaskKit/runtime/dataformat"
)

// ObjectConverter encodes object values in one data format. Several object
// converters may accept the same value; the registry's default format then
// decides.
type ObjectConverter struct {
	format dataformat.DataFormat
}

// NewObjectConverter returns an object converter for format.
func NewObjectConverter(format dataformat.DataFormat) *ObjectConverter {
	return &ObjectConverter{format: format}
}

// Type implements Converter.
func (*ObjectConverter) Type() ValueType { return TypeObject }

// SerializationFormat implements Converter.
func (c *ObjectConverter) SerializationFormat() string { return c.format.Name() }

// CanEncode accepts object values whose requested format is unset or equal
// to this converter's, and untyped non-primitive values the format can map.
// A value is only accepted when the format can serialize it, so Encode
// cannot fail after CanEncode. Serialized objects are accepted as they are.
func (c *ObjectConverter) CanEncode(v TypedValue) bool {
	name := c.format.Name()
	switch o := v.(type) {
	case *ObjectValue:
		if o == nil {
			return false
		}
		if o.format != "" && o.format != name {
			return false
		}
		if !o.deserialized || o.value == nil {
			return true
		}
		return c.format.CanMap(o.value)
	case UntypedValue:
		if _, primitive := KindOf(o.value); primitive {
			return false
		}
		if isField(o.value) {
			return false
		}
		return c.format.CanMap(o.value)
	default:
		return false
	}
}

// CanDecode accepts Object fields with a string or null value recorded in
// this converter's format. Fields without a format are read as JSON.
func (c *ObjectConverter) CanDecode(f Field) bool {
	if f.Type != string(TypeObject) {
		return false
	}
	if f.Value != nil && !isString(f.Value) {
		return false
	}
	format := f.SerializationFormat()
	if format == "" {
		format = dataformat.FormatJSON
	}
	return format == c.format.Name()
}

// Encode implements Converter.
func (c *ObjectConverter) Encode(v TypedValue) (Field, error) {
	o, ok := v.(*ObjectValue)
	if !ok {
		o = Object(v.Value())
	}

	f := Field{
		Type:      string(TypeObject),
		ValueInfo: map[string]string{ValueInfoSerializationFormat: c.format.Name()},
	}
	if o.objectTypeName != "" {
		f.ValueInfo[ValueInfoObjectTypeName] = o.objectTypeName
	}

	if !o.deserialized {
		f.Value = o.serialized
		return f, nil
	}
	if o.value == nil {
		return f, nil
	}

	s, err := c.format.Serialize(o.value)
	if err != nil {
		return Field{}, fmt.Errorf("variables: serialize object: %w", err)
	}
	f.Value = s
	if o.objectTypeName == "" {
		f.ValueInfo[ValueInfoObjectTypeName] = c.format.TypeName(o.value)
	}
	return f, nil
}

// Decode deserializes the field into the type named by its objectTypeName,
// or into a generic value when that type is unknown.
func (c *ObjectConverter) Decode(f Field) (TypedValue, error) {
	o := &ObjectValue{
		objectTypeName: f.ObjectTypeName(),
		format:         c.format.Name(),
		deserialized:   true,
	}
	if f.Value == nil {
		return o, nil
	}

	s, _ := f.Value.(string)
	v, err := c.format.Deserialize(s, o.objectTypeName)
	if err != nil {
		return nil, &DecodeError{Type: TypeObject, Value: f.Value, Cause: err}
	}
	o.value = v
	o.serialized = s
	return o, nil
}

func (c *ObjectConverter) String() string {
	return "ObjectConverter[" + c.format.Name() + "]"
}
