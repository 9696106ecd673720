package variables

// Converter translates one value kind between its Go and wire forms.
//
// Converters are immutable once registered and safe for concurrent use.
type Converter interface {
	// Type returns the kind this converter owns.
	Type() ValueType

	// SerializationFormat returns the data format for object converters and
	// "" for primitive converters.
	SerializationFormat() string

	// CanEncode reports whether v can be encoded by this converter.
	CanEncode(v TypedValue) bool

	// CanDecode reports whether f names this converter's kind and its raw
	// value has a shape the converter can read.
	CanDecode(f Field) bool

	// Encode converts v into its wire form. Callers must check CanEncode
	// first. Primitive converters never fail; object converters return the
	// data format's serialization error.
	Encode(v TypedValue) (Field, error)

	// Decode converts f into a typed value. It fails with *DecodeError when
	// the raw value cannot be parsed.
	Decode(f Field) (TypedValue, error)
}
