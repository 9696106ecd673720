package variables

import (
	"errors"
	"fmt"
)

// ErrValueUnavailable is wrapped by the DecodeError returned for fields the
// engine delivered with an error message instead of a value.
var ErrValueUnavailable = errors.New("value unavailable")

// DecodeError reports a wire value that could not be parsed under its
// converter's rules.
type DecodeError struct {
	Type  ValueType
	Value any
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("variables: cannot decode %s value %v: %v", e.Type, e.Value, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Cause }

// UnsupportedTypeError reports an encode attempt on an abstract kind.
type UnsupportedTypeError struct {
	Type ValueType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("variables: cannot serialize value of abstract type %s", e.Type)
}

// NoConverterError reports that no registered converter accepts a value or
// field. Exactly one of Value and Field is set.
type NoConverterError struct {
	Value TypedValue
	Field *Field
}

func (e *NoConverterError) Error() string {
	if e.Field != nil {
		return fmt.Sprintf("variables: no converter for field of type %q", e.Field.Type)
	}
	return fmt.Sprintf("variables: no converter for value %v", e.Value)
}
