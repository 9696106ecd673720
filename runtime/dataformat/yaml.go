package dataformat

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type yamlFormat struct{ types *Types }

// YAML returns the YAML data format (application/x-yaml).
func YAML(types *Types) DataFormat { return yamlFormat{types: types} }

func (yamlFormat) Name() string { return FormatYAML }

func (f yamlFormat) CanMap(v any) bool { return canSerialize(f, v) }

func (f yamlFormat) TypeName(v any) string { return f.types.NameOf(v) }

func (yamlFormat) Serialize(v any) (out string, err error) {
	// yaml.v3 panics on some unsupported values instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dataformat: yaml: %v", r)
		}
	}()
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("dataformat: yaml: %w", err)
	}
	return string(b), nil
}

func (f yamlFormat) Deserialize(serialized, typeName string) (any, error) {
	target, result := f.types.decodeTarget(typeName)
	if err := yaml.Unmarshal([]byte(serialized), target); err != nil {
		return nil, fmt.Errorf("dataformat: yaml: %w", err)
	}
	return result(), nil
}
