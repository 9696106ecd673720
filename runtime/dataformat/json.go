package dataformat

import (
	"encoding/json"
	"fmt"
)

type jsonFormat struct{ types *Types }

// JSON returns the JSON data format (application/json).
func JSON(types *Types) DataFormat { return jsonFormat{types: types} }

func (jsonFormat) Name() string { return FormatJSON }

func (f jsonFormat) CanMap(v any) bool { return canSerialize(f, v) }

func (f jsonFormat) TypeName(v any) string { return f.types.NameOf(v) }

func (jsonFormat) Serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("dataformat: json: %w", err)
	}
	return string(b), nil
}

func (f jsonFormat) Deserialize(serialized, typeName string) (any, error) {
	target, result := f.types.decodeTarget(typeName)
	if err := json.Unmarshal([]byte(serialized), target); err != nil {
		return nil, fmt.Errorf("dataformat: json: %w", err)
	}
	return result(), nil
}
