package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// valueKind classifies a stored parameter value. The kind of the existing
// value, not the incoming one, decides which coercion applies.
type valueKind int

const (
	kindText valueKind = iota
	kindNumber
	kindBool
	kindList
	kindReference
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case json.Number, float64, int, int64:
		return kindNumber
	case bool:
		return kindBool
	case []any:
		if _, ok := AsReference(v); ok {
			return kindReference
		}
		return kindList
	default:
		return kindText
	}
}

// coerce converts a new parameter value into the shape of the value it
// replaces. The table mirrors the engine's expectations: numeric stays
// numeric, bool stays bool, a list or node reference supplied as text is
// parsed as JSON, and anything else is stored verbatim.
func coerce(existing, value any) (any, error) {
	switch kindOf(existing) {
	case kindNumber:
		return coerceNumber(value)
	case kindBool:
		return coerceBool(value)
	case kindList, kindReference:
		return coerceList(value)
	default:
		return value, nil
	}
}

func coerceNumber(value any) (json.Number, error) {
	switch v := value.(type) {
	case json.Number:
		return v, nil
	case int:
		return json.Number(strconv.Itoa(v)), nil
	case int64:
		return json.Number(strconv.FormatInt(v, 10)), nil
	case float64:
		return json.Number(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case string:
		s := strings.TrimSpace(v)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", fmt.Errorf("%w: %q is not numeric", ErrCannotCoerce, v)
		}
		return json.Number(s), nil
	default:
		return "", fmt.Errorf("%w: %T into numeric parameter", ErrCannotCoerce, value)
	}
}

func coerceBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a bool", ErrCannotCoerce, v)
		}
		return b, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a bool", ErrCannotCoerce, v)
		}
		return f != 0, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("%w: %T into bool parameter", ErrCannotCoerce, value)
	}
}

func coerceList(value any) (any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case string:
		var parsed any
		if err := decodeNumeric([]byte(v), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %q is not a JSON value", ErrCannotCoerce, v)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("%w: %T into list parameter", ErrCannotCoerce, value)
	}
}
