package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf8"

	"gitlab.com/steer-2025.net/internal/static/errs"
)

// Kind tags the type stored in a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindIntArray
	KindFloatArray
	KindBoolArray
	KindStringArray
)

var kindNames = map[Kind]string{
	KindInt:         "int",
	KindFloat:       "float",
	KindBool:        "bool",
	KindString:      "string",
	KindIntArray:    "int[]",
	KindFloatArray:  "float[]",
	KindBoolArray:   "bool[]",
	KindStringArray: "string[]",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown value kind %q", name)
}

// Value is a tagged union over the scalar and homogeneous array types a
// Message can carry. The zero Value is invalid.
type Value struct {
	kind Kind
	data any
}

func Int(v int64) Value        { return Value{kind: KindInt, data: v} }
func Float(v float64) Value    { return Value{kind: KindFloat, data: v} }
func Bool(v bool) Value        { return Value{kind: KindBool, data: v} }
func String(v string) Value    { return Value{kind: KindString, data: v} }
func Ints(v []int64) Value     { return Value{kind: KindIntArray, data: slices.Clone(nonNil(v))} }
func Floats(v []float64) Value { return Value{kind: KindFloatArray, data: slices.Clone(nonNil(v))} }
func Bools(v []bool) Value     { return Value{kind: KindBoolArray, data: slices.Clone(nonNil(v))} }
func Strings(v []string) Value { return Value{kind: KindStringArray, data: slices.Clone(nonNil(v))} }

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// Interface returns the stored Go value. Array values are copied.
func (v Value) Interface() any {
	switch d := v.data.(type) {
	case []int64:
		return slices.Clone(d)
	case []float64:
		return slices.Clone(d)
	case []bool:
		return slices.Clone(d)
	case []string:
		return slices.Clone(d)
	}
	return v.data
}

// Equal reports whether both values carry the same tag and contents.
// NaN equals NaN.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch a := v.data.(type) {
	case float64:
		return sameFloat(a, o.data.(float64))
	case []int64:
		return slices.Equal(a, o.data.([]int64))
	case []float64:
		return slices.EqualFunc(a, o.data.([]float64), sameFloat)
	case []bool:
		return slices.Equal(a, o.data.([]bool))
	case []string:
		return slices.Equal(a, o.data.([]string))
	}
	return v.data == o.data
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.kind, v.data)
}

func (v Value) clone() Value {
	return Value{kind: v.kind, data: v.Interface()}
}

// wireFloat is a float64 on the wire. Non-finite values, which JSON
// numbers cannot carry, travel as the strings "NaN", "+Inf" and "-Inf".
type wireFloat float64

func (f wireFloat) MarshalJSON() ([]byte, error) {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return []byte(`"NaN"`), nil
	case math.IsInf(x, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(x, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(x)
}

func (f *wireFloat) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		var x float64
		if err := json.Unmarshal(data, &x); err != nil {
			return err
		}
		*f = wireFloat(x)
		return nil
	}
	switch token {
	case "NaN":
		*f = wireFloat(math.NaN())
	case "+Inf":
		*f = wireFloat(math.Inf(1))
	case "-Inf":
		*f = wireFloat(math.Inf(-1))
	default:
		return fmt.Errorf("invalid float %q", token)
	}
	return nil
}

// encodingBase64 marks string fields holding bytes that are not valid
// UTF-8. JSON would replace them with U+FFFD.
const encodingBase64 = "base64"

// encodeValue renders v for the wire and names the string encoding used,
// empty for plain JSON.
func encodeValue(v Value) (json.RawMessage, string, error) {
	var payload any
	var encoding string
	switch d := v.data.(type) {
	case float64:
		payload = wireFloat(d)
	case []float64:
		out := make([]wireFloat, len(d))
		for i, x := range d {
			out[i] = wireFloat(x)
		}
		payload = out
	case string:
		payload = d
		if !utf8.ValidString(d) {
			payload, encoding = base64.StdEncoding.EncodeToString([]byte(d)), encodingBase64
		}
	case []string:
		payload = d
		if !allValidUTF8(d) {
			out := make([]string, len(d))
			for i, x := range d {
				out[i] = base64.StdEncoding.EncodeToString([]byte(x))
			}
			payload, encoding = out, encodingBase64
		}
	default:
		payload = d
	}
	raw, err := json.Marshal(payload)
	return raw, encoding, err
}

func allValidUTF8(ss []string) bool {
	for _, s := range ss {
		if !utf8.ValidString(s) {
			return false
		}
	}
	return true
}

// decodeValue parses raw JSON according to kind. Integers are decoded as
// int64 so they never degrade into floats on the wire.
func decodeValue(kind Kind, raw json.RawMessage, encoding string) (Value, error) {
	switch encoding {
	case "":
	case encodingBase64:
		return decodeBase64Value(kind, raw)
	default:
		return Value{}, fmt.Errorf("%w: unknown encoding %q", errs.ErrTypeMismatch, encoding)
	}

	var err error
	switch kind {
	case KindInt:
		var x int64
		if err = json.Unmarshal(raw, &x); err == nil {
			return Int(x), nil
		}
	case KindFloat:
		var x wireFloat
		if err = json.Unmarshal(raw, &x); err == nil {
			return Float(float64(x)), nil
		}
	case KindBool:
		var x bool
		if err = json.Unmarshal(raw, &x); err == nil {
			return Bool(x), nil
		}
	case KindString:
		var x string
		if err = json.Unmarshal(raw, &x); err == nil {
			return String(x), nil
		}
	case KindIntArray:
		var x []int64
		if err = json.Unmarshal(raw, &x); err == nil {
			return Ints(x), nil
		}
	case KindFloatArray:
		var x []wireFloat
		if err = json.Unmarshal(raw, &x); err == nil {
			out := make([]float64, len(x))
			for i, f := range x {
				out[i] = float64(f)
			}
			return Floats(out), nil
		}
	case KindBoolArray:
		var x []bool
		if err = json.Unmarshal(raw, &x); err == nil {
			return Bools(x), nil
		}
	case KindStringArray:
		var x []string
		if err = json.Unmarshal(raw, &x); err == nil {
			return Strings(x), nil
		}
	default:
		return Value{}, fmt.Errorf("%w: cannot decode %s", errs.ErrTypeMismatch, kind)
	}
	return Value{}, fmt.Errorf("%w: decode %s: %v", errs.ErrTypeMismatch, kind, err)
}

func decodeBase64Value(kind Kind, raw json.RawMessage) (Value, error) {
	switch kind {
	case KindString:
		var x string
		if err := json.Unmarshal(raw, &x); err != nil {
			return Value{}, fmt.Errorf("%w: decode %s: %v", errs.ErrTypeMismatch, kind, err)
		}
		b, err := base64.StdEncoding.DecodeString(x)
		if err != nil {
			return Value{}, fmt.Errorf("%w: decode %s: %v", errs.ErrTypeMismatch, kind, err)
		}
		return String(string(b)), nil
	case KindStringArray:
		var x []string
		if err := json.Unmarshal(raw, &x); err != nil {
			return Value{}, fmt.Errorf("%w: decode %s: %v", errs.ErrTypeMismatch, kind, err)
		}
		out := make([]string, len(x))
		for i, s := range x {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return Value{}, fmt.Errorf("%w: decode %s: %v", errs.ErrTypeMismatch, kind, err)
			}
			out[i] = string(b)
		}
		return Strings(out), nil
	}
	return Value{}, fmt.Errorf("%w: %s cannot be base64 encoded", errs.ErrTypeMismatch, kind)
}
