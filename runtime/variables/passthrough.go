package variables

// PassthroughConverter sends an untyped value that already holds a Field
// without converting it. This lets a worker forward variables it received
// without decoding them first. It never decodes.
type PassthroughConverter struct{}

// NewPassthroughConverter returns the passthrough converter.
func NewPassthroughConverter() PassthroughConverter { return PassthroughConverter{} }

// Type implements Converter.
func (PassthroughConverter) Type() ValueType { return TypeUntyped }

// SerializationFormat implements Converter.
func (PassthroughConverter) SerializationFormat() string { return "" }

// CanEncode accepts untyped values wrapping a Field or non-nil *Field.
func (PassthroughConverter) CanEncode(v TypedValue) bool {
	return v.Type() == TypeUntyped && isField(v.Value())
}

// CanDecode implements Converter; it is always false.
func (PassthroughConverter) CanDecode(Field) bool { return false }

// Encode returns a copy of the wrapped field.
func (PassthroughConverter) Encode(v TypedValue) (Field, error) {
	var f Field
	switch raw := v.Value().(type) {
	case Field:
		f = raw
	case *Field:
		f = *raw
	}
	if f.ValueInfo != nil {
		info := make(map[string]string, len(f.ValueInfo))
		for k, val := range f.ValueInfo {
			info[k] = val
		}
		f.ValueInfo = info
	}
	return f, nil
}

// Decode implements Converter by wrapping f as an untyped value.
func (PassthroughConverter) Decode(f Field) (TypedValue, error) {
	return Untyped(f), nil
}

func isField(v any) bool {
	switch f := v.(type) {
	case Field:
		return true
	case *Field:
		return f != nil
	default:
		return false
	}
}
