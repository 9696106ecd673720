// Package dataformat provides the serialization formats used for object
// variables exchanged with the engine.
//
// Each DataFormat turns a Go value into the string stored in a variable's
// wire value and back. Binary formats (CBOR, Protobuf) store base64 text.
// Formats are identified by the media type the engine records in the
// variable's serializationDataFormat value info.
package dataformat

import (
	"reflect"
)

// Serialization format names as recorded by the engine.
const (
	FormatJSON     = "application/json"
	FormatCBOR     = "application/cbor"
	FormatYAML     = "application/x-yaml"
	FormatProtobuf = "application/x-protobuf"
)

// DataFormat serializes object variables in one wire format.
type DataFormat interface {
	// Name returns the serialization format name, e.g. "application/json".
	Name() string

	// CanMap reports whether v can be serialized in this format. Serialize
	// must not fail for a value CanMap accepted.
	CanMap(v any) bool

	// TypeName returns the object type name recorded alongside a serialized v.
	TypeName(v any) string

	// Serialize encodes v into its wire string.
	Serialize(v any) (string, error)

	// Deserialize decodes a wire string. typeName selects the Go type to
	// decode into; unknown names decode into a generic value.
	Deserialize(serialized, typeName string) (any, error)
}

// canSerialize reports whether f can encode v. The kind check rejects
// obviously unsupported values early; a trial Serialize catches nested ones
// such as a NaN inside a map or a func field in a struct.
func canSerialize(f DataFormat, v any) bool {
	if !mappable(v) {
		return false
	}
	_, err := f.Serialize(v)
	return err == nil
}

// mappable reports whether v has a top-level kind the generic reflection
// based formats (JSON, CBOR, YAML) can encode.
func mappable(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128, reflect.Invalid:
		return false
	default:
		return true
	}
}

// All returns the built-in formats in their default registration order.
func All(types *Types) ([]DataFormat, error) {
	cborFormat, err := CBOR(types)
	if err != nil {
		return nil, err
	}
	return []DataFormat{JSON(types), cborFormat, YAML(types), Protobuf()}, nil
}
