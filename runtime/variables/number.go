package variables

import (
	"encoding/json"
	"fmt"
	"math"
)

// NewShortConverter returns the Short (16 bit) converter.
func NewShortConverter() Converter {
	return integerConverter(TypeShort, math.MinInt16, math.MaxInt16, func(n int64) any { return int16(n) })
}

// NewIntegerConverter returns the Integer (32 bit) converter.
func NewIntegerConverter() Converter {
	return integerConverter(TypeInteger, math.MinInt32, math.MaxInt32, func(n int64) any { return int32(n) })
}

// NewLongConverter returns the Long (64 bit) converter.
func NewLongConverter() Converter {
	return integerConverter(TypeLong, math.MinInt64, math.MaxInt64, func(n int64) any { return n })
}

// NewDoubleConverter returns the Double converter.
func NewDoubleConverter() Converter {
	return &primitiveConverter{
		typ:      TypeDouble,
		accepts:  kindIs(TypeDouble),
		readable: isNumeric,
		write: func(v any) any {
			f, _ := toFloat64(v)
			return f
		},
		read: func(raw any) (any, error) { return toFloat64(raw) },
	}
}

func integerConverter(t ValueType, lo, hi int64, narrow func(int64) any) Converter {
	return &primitiveConverter{
		typ:      t,
		accepts:  kindIs(t),
		readable: isNumeric,
		write: func(v any) any {
			n, _ := toInt64(v)
			return narrow(n)
		},
		read: func(raw any) (any, error) {
			n, err := toInt64(raw)
			if err != nil {
				return nil, err
			}
			if n < lo || n > hi {
				return nil, fmt.Errorf("%d out of range for %s", n, t)
			}
			return narrow(n), nil
		},
	}
}

func isNumeric(raw any) bool {
	switch raw.(type) {
	case json.Number, float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func toInt64(raw any) (int64, error) {
	switch n := raw.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", n, err)
		}
		return floatToInt64(f)
	default:
		return 0, fmt.Errorf("%T is not a number", raw)
	}
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%d overflows int64", n)
	}
	return int64(n), nil
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not an integral number", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", f)
	}
	return int64(f), nil
}

func toFloat64(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", n, err)
		}
		return f, nil
	default:
		i, err := toInt64(raw)
		if err != nil {
			return 0, err
		}
		return float64(i), nil
	}
}
