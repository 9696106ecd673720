package dataformat

import (
	"encoding/base64"
	"fmt"
	"reflect"

	cbor "github.com/fxamacker/cbor/v2"
)

type cborFormat struct {
	types *Types
	enc   cbor.EncMode
	dec   cbor.DecMode
}

// CBOR returns a deterministic CBOR data format (application/cbor). The
// encoded bytes are stored as standard base64 text.
func CBOR(types *Types) (DataFormat, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("dataformat: cbor enc mode: %w", err)
	}
	dm, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("dataformat: cbor dec mode: %w", err)
	}
	return cborFormat{types: types, enc: em, dec: dm}, nil
}

func (cborFormat) Name() string { return FormatCBOR }

func (f cborFormat) CanMap(v any) bool { return canSerialize(f, v) }

func (f cborFormat) TypeName(v any) string { return f.types.NameOf(v) }

func (f cborFormat) Serialize(v any) (string, error) {
	b, err := f.enc.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("dataformat: cbor: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (f cborFormat) Deserialize(serialized, typeName string) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return nil, fmt.Errorf("dataformat: cbor: %w", err)
	}
	target, result := f.types.decodeTarget(typeName)
	if err := f.dec.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("dataformat: cbor: %w", err)
	}
	return result(), nil
}
