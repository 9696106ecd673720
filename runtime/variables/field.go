package variables

// Value info keys carried in Field.ValueInfo.
const (
	ValueInfoSerializationFormat = "serializationDataFormat"
	ValueInfoObjectTypeName      = "objectTypeName"
)

// Field is the wire representation of one variable.
//
// When ErrorMessage is set the engine could not produce the value; Value is
// then undefined and must not be decoded.
type Field struct {
	Type         string            `json:"type"`
	Value        any               `json:"value"`
	ValueInfo    map[string]string `json:"valueInfo,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

// HasError reports whether the engine attached an error instead of a value.
func (f Field) HasError() bool { return f.ErrorMessage != "" }

// SerializationFormat returns the serializationDataFormat value info.
func (f Field) SerializationFormat() string { return f.ValueInfo[ValueInfoSerializationFormat] }

// ObjectTypeName returns the objectTypeName value info.
func (f Field) ObjectTypeName() string { return f.ValueInfo[ValueInfoObjectTypeName] }
