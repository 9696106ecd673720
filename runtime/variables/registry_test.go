package variables

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/AltairaLabs/TaskKit/runtime/dataformat"
)

// fakeFormat maps any non-nil value and stores it as JSON under its own name.
type fakeFormat struct{ name string }

func (f fakeFormat) Name() string { return f.name }

func (fakeFormat) CanMap(v any) bool { return v != nil }

func (fakeFormat) TypeName(any) string { return "fake" }

func (fakeFormat) Serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
func (fakeFormat) Deserialize(s, _ string) (any, error) {
	var out any
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	formats, err := dataformat.All(dataformat.NewTypes())
	require.NoError(t, err)
	return NewDefaultRegistry(dataformat.FormatJSON, DefaultDateLayout, formats...)
}

func TestRegistry_PrimitiveValuesResolveToSingleCandidate(t *testing.T) {
	r := newTestRegistry(t)
	now := time.Now()

	cases := []struct {
		value TypedValue
		want  ValueType
	}{
		{NullValue(), TypeNull},
		{Untyped(nil), TypeNull},
		{BooleanValue(true), TypeBoolean},
		{Untyped(false), TypeBoolean},
		{ShortValue(3), TypeShort},
		{Untyped(int16(3)), TypeShort},
		{IntegerValue(3), TypeInteger},
		{Untyped(int32(3)), TypeInteger},
		{LongValue(3), TypeLong},
		{Untyped(3), TypeLong},
		{DoubleValue(1.5), TypeDouble},
		{Untyped(float32(1.5)), TypeDouble},
		{StringValue("x"), TypeString},
		{Untyped("x"), TypeString},
		{TypedNull(TypeString), TypeString},
		{DateValue(now), TypeDate},
		{Untyped(now), TypeDate},
		{BytesValue([]byte("ab")), TypeBytes},
		{Untyped([]byte("ab")), TypeBytes},
	}

	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			candidates := r.encodeCandidates(tc.value)
			require.Len(t, candidates, 1)
			assert.Equal(t, tc.want, candidates[0].Type())

			c, err := r.ConverterForValue(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Type())
			assert.False(t, r.Ambiguous(tc.value))
		})
	}
}

func TestRegistry_NullNeverAmbiguousWithObjects(t *testing.T) {
	r := NewRegistry("A",
		NewObjectConverter(fakeFormat{"A"}),
		NewNullConverter(),
		NewObjectConverter(fakeFormat{"B"}),
	)

	for _, v := range []TypedValue{NullValue(), Untyped(nil), nil} {
		c, err := r.ConverterForValue(v)
		require.NoError(t, err)
		assert.Equal(t, TypeNull, c.Type())
	}
}

func TestRegistry_PrimitiveRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	fields := []Field{
		{Type: "Null"},
		{Type: "Boolean", Value: true},
		{Type: "Boolean"},
		{Type: "Short", Value: float64(7)},
		{Type: "Short", Value: json.Number("-12")},
		{Type: "Integer", Value: json.Number("42")},
		{Type: "Long", Value: float64(1 << 40)},
		{Type: "Long", Value: json.Number("9007199254740993")},
		{Type: "Double", Value: 1.25},
		{Type: "Double", Value: json.Number("3")},
		{Type: "String", Value: "hello"},
		{Type: "String"},
		{Type: "Date", Value: "2024-03-01T10:20:30.123+0100"},
		{Type: "Bytes", Value: "aGVsbG8="},
	}

	for _, f := range fields {
		t.Run(f.Type, func(t *testing.T) {
			first, err := r.Decode(f)
			require.NoError(t, err)

			encoded, err := r.Encode(first)
			require.NoError(t, err)
			assert.Equal(t, f.Type, encoded.Type)

			second, err := r.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, first.Type(), second.Type())

			if first.Type() == TypeDate {
				assert.True(t, first.Value().(time.Time).Equal(second.Value().(time.Time)))
				return
			}
			assert.Equal(t, first.Value(), second.Value())
		})
	}
}

func TestRegistry_DateLayoutTruncates(t *testing.T) {
	formats, err := dataformat.All(nil)
	require.NoError(t, err)
	r := NewDefaultRegistry(dataformat.FormatJSON, "2006-01-02", formats...)

	in := time.Date(2024, time.March, 1, 17, 45, 12, 500, time.UTC)
	f, err := r.Encode(DateValue(in))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", f.Value)

	out, err := r.Decode(f)
	require.NoError(t, err)
	assert.True(t, out.Value().(time.Time).Equal(in.Truncate(24*time.Hour)))
}

func TestRegistry_DateWithoutSeconds(t *testing.T) {
	r := NewRegistry("", NewDateConverter("2006-01-02 15:04"))

	in := time.Date(2024, time.March, 1, 17, 45, 12, 0, time.UTC)
	f, err := r.Encode(Untyped(in))
	require.NoError(t, err)

	out, err := r.Decode(f)
	require.NoError(t, err)
	assert.True(t, out.Value().(time.Time).Equal(in.Truncate(time.Minute)))
}

func TestRegistry_MalformedDate(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Decode(Field{Type: "Date", Value: "01/03/2024"})
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, TypeDate, decodeErr.Type)
}

func TestRegistry_DateRejectsNumericValue(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Decode(Field{Type: "Date", Value: float64(1700000000)})
	var noConverter *NoConverterError
	assert.ErrorAs(t, err, &noConverter)
}

func TestRegistry_NumberDecodeErrors(t *testing.T) {
	r := newTestRegistry(t)

	for _, f := range []Field{
		{Type: "Short", Value: float64(70000)},
		{Type: "Integer", Value: 1.5},
		{Type: "Long", Value: json.Number("1e400")},
	} {
		_, err := r.Decode(f)
		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr, "field %+v", f)
	}

	_, err := r.Decode(Field{Type: "Integer", Value: "42"})
	var noConverter *NoConverterError
	assert.ErrorAs(t, err, &noConverter)
}

func TestRegistry_UnknownTypeTag(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Decode(Field{Type: "Json", Value: "{}"})
	var noConverter *NoConverterError
	require.ErrorAs(t, err, &noConverter)
	assert.Equal(t, "Json", noConverter.Field.Type)
	assert.Contains(t, err.Error(), `"Json"`)
}

func TestRegistry_AbstractType(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Encode(NewTypedValue(TypeNumber, 5))
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, TypeNumber, unsupported.Type)
}

func TestRegistry_NoConverterForValue(t *testing.T) {
	r := NewRegistry(dataformat.FormatJSON, NewStringConverter())

	_, err := r.Encode(Untyped(struct{ A int }{1}))
	var noConverter *NoConverterError
	require.ErrorAs(t, err, &noConverter)
	assert.NotNil(t, noConverter.Value)
}

func TestRegistry_FieldWithErrorMessage(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Decode(Field{Type: "String", Value: "x", ErrorMessage: "cannot deserialize"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValueUnavailable))
	assert.Contains(t, err.Error(), "cannot deserialize")
}

func TestRegistry_DefaultFormatTieBreak(t *testing.T) {
	a := NewObjectConverter(fakeFormat{"A"})
	b := NewObjectConverter(fakeFormat{"B"})
	value := Object(map[string]any{"k": "v"})

	for _, order := range [][]Converter{{a, b}, {b, a}} {
		r := NewRegistry("A", order...)
		c, err := r.ConverterForValue(value)
		require.NoError(t, err)
		assert.Equal(t, "A", c.SerializationFormat())
		assert.False(t, r.Ambiguous(value))
	}
}

func TestRegistry_FirstRegisteredWinsWithoutDefaultMatch(t *testing.T) {
	a := NewObjectConverter(fakeFormat{"A"})
	b := NewObjectConverter(fakeFormat{"B"})
	value := Untyped(map[string]any{"k": "v"})

	r := NewRegistry("C", a, b)
	c, err := r.ConverterForValue(value)
	require.NoError(t, err)
	assert.Equal(t, "A", c.SerializationFormat())
	assert.True(t, r.Ambiguous(value))

	r = NewRegistry("C", b, a)
	c, err = r.ConverterForValue(value)
	require.NoError(t, err)
	assert.Equal(t, "B", c.SerializationFormat())
}

func TestRegistry_SkipsFormatThatCannotSerialize(t *testing.T) {
	r := newTestRegistry(t)
	value := Untyped(map[string]any{"ratio": math.NaN()})

	c, err := r.ConverterForValue(value)
	require.NoError(t, err)
	assert.Equal(t, dataformat.FormatCBOR, c.SerializationFormat())
	assert.True(t, r.Ambiguous(value))

	f, err := r.Encode(value)
	require.NoError(t, err)
	assert.Equal(t, dataformat.FormatCBOR, f.SerializationFormat())
}

func TestRegistry_UnserializableObject(t *testing.T) {
	r := newTestRegistry(t)

	for _, v := range []TypedValue{
		Object(struct{ F func() }{}),
		Untyped(map[string]any{"c": make(chan int)}),
	} {
		_, err := r.Encode(v)
		var noConverter *NoConverterError
		require.ErrorAs(t, err, &noConverter)
	}
}

func TestRegistry_NilObjectValueEncodesAsNull(t *testing.T) {
	r := newTestRegistry(t)
	var o *ObjectValue

	c, err := r.ConverterForValue(o)
	require.NoError(t, err)
	assert.Equal(t, TypeNull, c.Type())
	assert.False(t, r.Ambiguous(o))

	f, err := r.Encode(o)
	require.NoError(t, err)
	assert.Equal(t, string(TypeNull), f.Type)
	assert.Nil(t, f.Value)
}

func TestRegistry_UnsignedIntegers(t *testing.T) {
	r := newTestRegistry(t)

	for _, v := range []any{uint(7), uint64(5)} {
		f, err := r.EncodeAny(v)
		require.NoError(t, err)
		assert.Equal(t, string(TypeLong), f.Type)
	}
	f, err := r.EncodeAny(uint64(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), f.Value)

	f, err = r.EncodeAny(uint64(math.MaxUint64))
	require.NoError(t, err)
	assert.Equal(t, string(TypeObject), f.Type)
}

func TestRegistry_OnAmbiguous(t *testing.T) {
	a := NewObjectConverter(fakeFormat{"A"})
	b := NewObjectConverter(fakeFormat{"B"})
	value := Untyped(map[string]any{"k": "v"})

	var chosen []string
	r := NewRegistry("C", b).
		OnAmbiguous(func(_ TypedValue, c Converter) { chosen = append(chosen, c.SerializationFormat()) }).
		Register(a)

	_, err := r.Encode(value)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, chosen)

	_, err = r.Encode(Object(value.Value(), WithSerializationFormat("A")))
	require.NoError(t, err)
	assert.Len(t, chosen, 1, "a single candidate is not ambiguous")
}

func TestRegistry_RegisterReturnsNewSnapshot(t *testing.T) {
	base := NewRegistry(dataformat.FormatJSON, NewStringConverter())
	extended := base.Register(NewBooleanConverter())

	assert.Len(t, base.Converters(), 1)
	assert.Len(t, extended.Converters(), 2)
	assert.Equal(t, base.DefaultFormat(), extended.DefaultFormat())

	_, err := base.Encode(BooleanValue(true))
	assert.Error(t, err)
	_, err = extended.Encode(BooleanValue(true))
	assert.NoError(t, err)
}

func TestRegistry_ProtobufMessageFollowsDefault(t *testing.T) {
	formats, err := dataformat.All(nil)
	require.NoError(t, err)
	msg, err := structpb.NewStruct(map[string]any{"k": "v"})
	require.NoError(t, err)

	r := NewDefaultRegistry(dataformat.FormatProtobuf, "", formats...)
	c, err := r.ConverterForValue(Untyped(msg))
	require.NoError(t, err)
	assert.Equal(t, dataformat.FormatProtobuf, c.SerializationFormat())

	r = NewDefaultRegistry(dataformat.FormatJSON, "", formats...)
	c, err = r.ConverterForValue(Untyped(msg))
	require.NoError(t, err)
	assert.Equal(t, dataformat.FormatJSON, c.SerializationFormat())
}

func TestRegistry_EncodeAllAndDecodeAll(t *testing.T) {
	r := newTestRegistry(t)

	fields, err := r.EncodeAll(map[string]any{
		"amount":   int64(10),
		"approved": true,
		"customer": StringValue("acme"),
		"lines":    []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Long", fields["amount"].Type)
	assert.Equal(t, "Boolean", fields["approved"].Type)
	assert.Equal(t, "String", fields["customer"].Type)
	assert.Equal(t, "Object", fields["lines"].Type)
	assert.Equal(t, dataformat.FormatJSON, fields["lines"].SerializationFormat())

	fields["broken"] = Field{Type: "Date", Value: "yesterday"}
	values, errs := r.DecodeAll(fields)
	assert.Len(t, values, 4)
	require.Contains(t, errs, "broken")
	assert.Equal(t, int64(10), values["amount"].Value())

	none, err := r.EncodeAll(nil)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestRegistry_EncodeAllWrapsName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.EncodeAll(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ch"`)
	var noConverter *NoConverterError
	assert.ErrorAs(t, err, &noConverter)
}
