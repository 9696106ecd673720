package dataformat

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

type protobufFormat struct{}

// Protobuf returns the protobuf binary data format (application/x-protobuf).
// Only proto.Message values can be mapped; the object type name is the
// message's full name and decoding resolves it through the global registry.
func Protobuf() DataFormat { return protobufFormat{} }

func (protobufFormat) Name() string { return FormatProtobuf }

func (protobufFormat) CanMap(v any) bool {
	m, ok := v.(proto.Message)
	return ok && m != nil
}

func (protobufFormat) TypeName(v any) string {
	m, ok := v.(proto.Message)
	if !ok {
		return ""
	}
	return string(m.ProtoReflect().Descriptor().FullName())
}

func (protobufFormat) Serialize(v any) (string, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return "", fmt.Errorf("dataformat: protobuf: %T is not a proto.Message", v)
	}
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("dataformat: protobuf: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (protobufFormat) Deserialize(serialized, typeName string) (any, error) {
	mt, err := protoregistry.GlobalTypes.FindMessageByName(protoreflect.FullName(typeName))
	if err != nil {
		return nil, fmt.Errorf("dataformat: protobuf: message %q: %w", typeName, err)
	}
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return nil, fmt.Errorf("dataformat: protobuf: %w", err)
	}
	m := mt.New().Interface()
	if err := proto.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("dataformat: protobuf: %w", err)
	}
	return m, nil
}
