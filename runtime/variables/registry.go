package variables

import (
	"fmt"
	"sort"

	"github.com/AltairaLabs/TaskKit/runtime/dataformat"
)

// Registry resolves the converter responsible for a value or field.
//
// A Registry is an immutable, ordered snapshot: Register returns a new
// registry and leaves the receiver untouched, so a registry handed to worker
// goroutines can be read without locking. Registration order is the
// resolution order; the first registered converter wins ties.
type Registry struct {
	converters    []Converter
	defaultFormat string
	onAmbiguous   AmbiguityHandler
}

// AmbiguityHandler is called when several converters accept v, none of them
// uses the default format, and chosen was picked by registration order.
// It may be called from many goroutines.
type AmbiguityHandler func(v TypedValue, chosen Converter)

// NewRegistry creates a registry with the given default serialization format
// and converters, in order.
func NewRegistry(defaultFormat string, converters ...Converter) *Registry {
	cs := make([]Converter, len(converters))
	copy(cs, converters)
	return &Registry{converters: cs, defaultFormat: defaultFormat}
}

// NewDefaultRegistry creates a registry holding the baseline converters:
// the primitive kinds, one object converter per format, and the passthrough
// converter. An empty dateLayout selects DefaultDateLayout.
func NewDefaultRegistry(defaultFormat, dateLayout string, formats ...dataformat.DataFormat) *Registry {
	cs := []Converter{
		NewNullConverter(),
		NewBooleanConverter(),
		NewShortConverter(),
		NewIntegerConverter(),
		NewLongConverter(),
		NewDoubleConverter(),
		NewStringConverter(),
		NewDateConverter(dateLayout),
		NewBytesConverter(),
	}
	for _, f := range formats {
		cs = append(cs, NewObjectConverter(f))
	}
	cs = append(cs, NewPassthroughConverter())
	return &Registry{converters: cs, defaultFormat: defaultFormat}
}

// Register returns a new registry with c appended. Converters are not
// deduplicated.
func (r *Registry) Register(c Converter) *Registry {
	cs := make([]Converter, len(r.converters), len(r.converters)+1)
	copy(cs, r.converters)
	return &Registry{converters: append(cs, c), defaultFormat: r.defaultFormat, onAmbiguous: r.onAmbiguous}
}

// OnAmbiguous returns a new registry that reports registration order
// fallbacks to h.
func (r *Registry) OnAmbiguous(h AmbiguityHandler) *Registry {
	return &Registry{converters: r.converters, defaultFormat: r.defaultFormat, onAmbiguous: h}
}

// DefaultFormat returns the serialization format preferred for ambiguous
// object encodes.
func (r *Registry) DefaultFormat() string { return r.defaultFormat }

// Converters returns the registered converters in resolution order.
func (r *Registry) Converters() []Converter {
	cs := make([]Converter, len(r.converters))
	copy(cs, r.converters)
	return cs
}

// ConverterForValue returns the converter that encodes v.
//
// Abstract kinds fail with *UnsupportedTypeError. Otherwise every converter
// accepting v is collected in registration order, and the tie-break picks
// among them (see pickCandidate). No match fails with *NoConverterError.
func (r *Registry) ConverterForValue(v TypedValue) (Converter, error) {
	v = nullIfNil(v)
	if v.Type().IsAbstract() {
		return nil, &UnsupportedTypeError{Type: v.Type()}
	}
	return r.pickCandidate(v, r.encodeCandidates(v))
}

// encodeCandidates collects the converters accepting v. Primitive kinds are
// mutually exclusive and take precedence over objects, so the scan stops at
// the first primitive match and returns it alone.
func (r *Registry) encodeCandidates(v TypedValue) []Converter {
	var matched []Converter
	for _, c := range r.converters {
		if !c.CanEncode(v) {
			continue
		}
		if c.Type().IsPrimitive() {
			return []Converter{c}
		}
		matched = append(matched, c)
	}
	return matched
}

// pickCandidate applies the tie-break: a single candidate wins outright;
// among several, the first whose format is the default format wins, falling
// back to the first registered.
func (r *Registry) pickCandidate(v TypedValue, candidates []Converter) (Converter, error) {
	switch len(candidates) {
	case 0:
		return nil, &NoConverterError{Value: v}
	case 1:
		return candidates[0], nil
	}
	for _, c := range candidates {
		if c.SerializationFormat() == r.defaultFormat {
			return c, nil
		}
	}
	if r.onAmbiguous != nil {
		r.onAmbiguous(v, candidates[0])
	}
	return candidates[0], nil
}

// Ambiguous reports whether several converters accept v and none of them
// uses the default format, so resolution falls back to registration order.
func (r *Registry) Ambiguous(v TypedValue) bool {
	candidates := r.encodeCandidates(nullIfNil(v))
	if len(candidates) < 2 {
		return false
	}
	for _, c := range candidates {
		if c.SerializationFormat() == r.defaultFormat {
			return false
		}
	}
	return true
}

// ConverterForField returns the first registered converter that decodes f.
func (r *Registry) ConverterForField(f Field) (Converter, error) {
	for _, c := range r.converters {
		if c.CanDecode(f) {
			return c, nil
		}
	}
	return nil, &NoConverterError{Field: &f}
}

// Encode converts v into its wire form.
func (r *Registry) Encode(v TypedValue) (Field, error) {
	v = nullIfNil(v)
	c, err := r.ConverterForValue(v)
	if err != nil {
		return Field{}, err
	}
	return c.Encode(v)
}

// EncodeAny encodes a TypedValue as-is and any other Go value as untyped.
func (r *Registry) EncodeAny(v any) (Field, error) {
	if tv, ok := v.(TypedValue); ok {
		return r.Encode(tv)
	}
	return r.Encode(Untyped(v))
}

// EncodeAll encodes a set of named variables.
func (r *Registry) EncodeAll(vars map[string]any) (map[string]Field, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	fields := make(map[string]Field, len(vars))
	for _, name := range sortedKeys(vars) {
		f, err := r.EncodeAny(vars[name])
		if err != nil {
			return nil, fmt.Errorf("variables: encode %q: %w", name, err)
		}
		fields[name] = f
	}
	return fields, nil
}

// Decode converts f into a typed value. Fields carrying an engine error
// message fail with a *DecodeError wrapping ErrValueUnavailable.
func (r *Registry) Decode(f Field) (TypedValue, error) {
	if f.HasError() {
		return nil, &DecodeError{
			Type:  ValueType(f.Type),
			Cause: fmt.Errorf("%w: %s", ErrValueUnavailable, f.ErrorMessage),
		}
	}
	c, err := r.ConverterForField(f)
	if err != nil {
		return nil, err
	}
	return c.Decode(f)
}

// DecodeAll decodes a set of named fields. Fields that fail are left out of
// the values and reported in errs, keyed by name.
func (r *Registry) DecodeAll(fields map[string]Field) (values map[string]TypedValue, errs map[string]error) {
	values = make(map[string]TypedValue, len(fields))
	for name, f := range fields {
		v, err := r.Decode(f)
		if err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[name] = err
			continue
		}
		values[name] = v
	}
	return values, errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// nullIfNil maps a nil value, including a nil *ObjectValue, to NullValue.
func nullIfNil(v TypedValue) TypedValue {
	if v == nil {
		return NullValue()
	}
	if o, ok := v.(*ObjectValue); ok && o == nil {
		return NullValue()
	}
	return v
}
