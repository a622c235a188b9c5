package governance

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Payload is what a logging call hands to the engine: a String or Fields.
type Payload interface {
	isPayload()
}

// Value is a structured payload value. Only String values are redacted.
type Value interface {
	isValue()
}

// String is a scalar string. It is both a Payload and a Value.
type String string

// Number is a numeric value kept as its decimal literal, so integers wider
// than a float64 mantissa come back out exactly as they went in.
type Number string

// Float64 parses n.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// Int64 parses n as an integer.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// Bool is a boolean value.
type Bool bool

// Null marks a present key with no value.
type Null struct{}

// List is an ordered sequence of values.
type List []Value

// Fields maps field names to values. It is both a Payload and a Value.
type Fields map[string]Value

func (String) isPayload() {}
func (Fields) isPayload() {}

func (String) isValue() {}
func (Number) isValue() {}
func (Bool) isValue() {}
func (Null) isValue() {}
func (List) isValue() {}
func (Fields) isValue() {}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes Fields as a JSON object.
func (f Fields) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueToAny(f))
}

// MarshalJSON encodes List as a JSON array.
func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal(valueToAny(l))
}

// MarshalJSON encodes Null as JSON null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// FromAny converts a decoded JSON or YAML value into a Payload. Only strings
// and string-keyed maps are accepted at the top level.
func FromAny(v any) (Payload, error) {
	switch t := v.(type) {
	case Payload:
		return t, nil
	case string:
		return String(t), nil
	case map[string]any:
		fields, err := fieldsOf(t, "")
		if err != nil {
			return nil, err
		}
		return fields, nil
	default:
		return nil, &InvalidPayloadError{Type: typeName(v)}
	}
}

// ValueOf converts a decoded value into a Value.
func ValueOf(v any) (Value, error) {
	return valueOf(v, "")
}

func valueOf(v any, path string) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if _, err := strconv.ParseFloat(string(t), 64); err != nil && !isRangeError(err) {
			return nil, &InvalidPayloadError{Type: "json.Number", Path: path}
		}
		return Number(t), nil
	case int:
		return Number(strconv.FormatInt(int64(t), 10)), nil
	case int8:
		return Number(strconv.FormatInt(int64(t), 10)), nil
	case int16:
		return Number(strconv.FormatInt(int64(t), 10)), nil
	case int32:
		return Number(strconv.FormatInt(int64(t), 10)), nil
	case int64:
		return Number(strconv.FormatInt(t, 10)), nil
	case uint:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint8:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint16:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10)), nil
	case float32:
		return Number(strconv.FormatFloat(float64(t), 'g', -1, 32)), nil
	case float64:
		return Number(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case []any:
		list := make(List, len(t))
		for i, item := range t {
			val, err := valueOf(item, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			list[i] = val
		}
		return list, nil
	case map[string]any:
		return fieldsOf(t, path)
	default:
		return nil, &InvalidPayloadError{Type: typeName(v), Path: path}
	}
}

func fieldsOf(m map[string]any, path string) (Fields, error) {
	fields := make(Fields, len(m))
	for k, item := range m {
		child := k
		if path != "" {
			child = path + "." + k
		}
		val, err := valueOf(item, child)
		if err != nil {
			return nil, err
		}
		fields[k] = val
	}
	return fields, nil
}

// ToAny converts a Payload back into plain Go values suitable for
// encoding/json.
func ToAny(p Payload) any {
	switch t := p.(type) {
	case String:
		return string(t)
	case Fields:
		return valueToAny(t)
	default:
		return nil
	}
}

func valueToAny(v Value) any {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return json.Number(t)
	case Bool:
		return bool(t)
	case Null:
		return nil
	case List:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = valueToAny(item)
		}
		return out
	case Fields:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}

func isRangeError(err error) bool {
	var numErr *strconv.NumError
	return errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange)
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
