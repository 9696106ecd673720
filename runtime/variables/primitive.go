package variables

import (
	"encoding/base64"
	"fmt"
	"time"
)

// DefaultDateLayout is the default Go time layout used for Date variables.
// It matches the engine's default "yyyy-MM-dd'T'HH:mm:ss.SSSZ" pattern.
const DefaultDateLayout = "2006-01-02T15:04:05.000-0700"

// primitiveConverter implements Converter for one primitive kind. The kind
// specific behavior lives in the four functions.
type primitiveConverter struct {
	typ ValueType
	// accepts reports whether a non-nil Go value belongs to the kind.
	accepts func(v any) bool
	// readable reports whether a non-nil raw wire value has the right shape.
	readable func(raw any) bool
	write    func(v any) any
	read     func(raw any) (any, error)
}

func (c *primitiveConverter) Type() ValueType { return c.typ }

func (*primitiveConverter) SerializationFormat() string { return "" }

func (c *primitiveConverter) CanEncode(v TypedValue) bool {
	switch v.Type() {
	case c.typ:
		return v.Value() == nil || c.accepts(v.Value())
	case TypeUntyped:
		kind, primitive := KindOf(v.Value())
		return primitive && kind == c.typ
	default:
		return false
	}
}

func (c *primitiveConverter) CanDecode(f Field) bool {
	return f.Type == string(c.typ) && (f.Value == nil || c.readable(f.Value))
}

func (c *primitiveConverter) Encode(v TypedValue) (Field, error) {
	f := Field{Type: string(c.typ)}
	if raw := v.Value(); raw != nil {
		f.Value = c.write(raw)
	}
	return f, nil
}

func (c *primitiveConverter) Decode(f Field) (TypedValue, error) {
	if f.Value == nil {
		return TypedNull(c.typ), nil
	}
	v, err := c.read(f.Value)
	if err != nil {
		return nil, &DecodeError{Type: c.typ, Value: f.Value, Cause: err}
	}
	return PrimitiveValue{typ: c.typ, value: v}, nil
}

func (c *primitiveConverter) String() string {
	return c.typ.String() + "Converter"
}

func kindIs(t ValueType) func(any) bool {
	return func(v any) bool {
		kind, primitive := KindOf(v)
		return primitive && kind == t
	}
}

func isString(raw any) bool {
	_, ok := raw.(string)
	return ok
}

// NewNullConverter returns the converter for untyped nulls. Any raw value
// of a Null field decodes to null.
func NewNullConverter() Converter {
	return &primitiveConverter{
		typ:      TypeNull,
		accepts:  func(any) bool { return false },
		readable: func(any) bool { return true },
		write:    func(any) any { return nil },
		read:     func(any) (any, error) { return nil, nil },
	}
}

// NewBooleanConverter returns the Boolean converter.
func NewBooleanConverter() Converter {
	return &primitiveConverter{
		typ:     TypeBoolean,
		accepts: kindIs(TypeBoolean),
		readable: func(raw any) bool {
			_, ok := raw.(bool)
			return ok
		},
		write: func(v any) any { return v },
		read:  func(raw any) (any, error) { return raw, nil },
	}
}

// NewStringConverter returns the String converter.
func NewStringConverter() Converter {
	return &primitiveConverter{
		typ:      TypeString,
		accepts:  kindIs(TypeString),
		readable: isString,
		write:    func(v any) any { return v },
		read:     func(raw any) (any, error) { return raw, nil },
	}
}

// NewDateConverter returns the Date converter using a Go time layout. Dates
// are written in their own location; precision finer than the layout is
// dropped.
func NewDateConverter(layout string) Converter {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return &primitiveConverter{
		typ:      TypeDate,
		accepts:  kindIs(TypeDate),
		readable: isString,
		write: func(v any) any {
			t, _ := v.(time.Time)
			return t.Format(layout)
		},
		read: func(raw any) (any, error) {
			s, _ := raw.(string)
			t, err := time.Parse(layout, s)
			if err != nil {
				return nil, fmt.Errorf("date does not match layout %q: %w", layout, err)
			}
			return t, nil
		},
	}
}

// NewBytesConverter returns the Bytes converter. Bytes travel as standard
// base64 text.
func NewBytesConverter() Converter {
	return &primitiveConverter{
		typ:      TypeBytes,
		accepts:  kindIs(TypeBytes),
		readable: isString,
		write: func(v any) any {
			b, _ := v.([]byte)
			return base64.StdEncoding.EncodeToString(b)
		},
		read: func(raw any) (any, error) {
			s, _ := raw.(string)
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("invalid base64: %w", err)
			}
			return b, nil
		},
	}
}
