package domain

import (
	"encoding/json"
	"math"
	"testing"

	"pgregory.net/rapid"
)

// wordGen mixes valid UTF-8 text with raw bytes
var wordGen = rapid.OneOf(
	rapid.String(),
	rapid.Map(rapid.SliceOfN(rapid.Byte(), 0, 12), func(b []byte) string { return string(b) }),
)

var floatGen = rapid.OneOf(
	rapid.Float64(),
	rapid.SampledFrom([]float64{math.NaN(), math.Inf(1), math.Inf(-1), math.Copysign(0, -1)}),
)

// valueGen draws a value of any kind.
func valueGen() *rapid.Generator[Value] {
	return rapid.Custom(func(t *rapid.T) Value {
		switch rapid.IntRange(int(KindInt), int(KindStringArray)).Draw(t, "kind") {
		case int(KindInt):
			return Int(rapid.Int64().Draw(t, "int"))
		case int(KindFloat):
			return Float(floatGen.Draw(t, "float"))
		case int(KindBool):
			return Bool(rapid.Bool().Draw(t, "bool"))
		case int(KindString):
			return String(wordGen.Draw(t, "string"))
		case int(KindIntArray):
			return Ints(rapid.SliceOfN(rapid.Int64(), 0, 8).Draw(t, "ints"))
		case int(KindFloatArray):
			return Floats(rapid.SliceOfN(floatGen, 0, 8).Draw(t, "floats"))
		case int(KindBoolArray):
			return Bools(rapid.SliceOfN(rapid.Bool(), 0, 8).Draw(t, "bools"))
		default:
			return Strings(rapid.SliceOfN(wordGen, 0, 8).Draw(t, "strings"))
		}
	})
}

// TestProperty_MessageJSONRoundTrip: encoding then decoding any message
// yields the same keys in the same order, each with its tag and contents.
func TestProperty_MessageJSONRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := NewMessage()
		n := rapid.IntRange(0, 12).Draw(t, "fields")
		for i := 0; i < n; i++ {
			key := rapid.String().Draw(t, "key")
			msg.Set(key, valueGen().Draw(t, "value"))
		}

		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		decoded := NewMessage()
		if err := json.Unmarshal(data, decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}

		if decoded.Len() != msg.Len() {
			t.Fatalf("len %d, want %d", decoded.Len(), msg.Len())
		}
		want := msg.Keys()
		got := decoded.Keys()
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("key %d is %q, want %q", i, got[i], want[i])
			}
			a, _ := msg.Get(want[i], msg.entries[want[i]].Kind())
			b, err := decoded.Get(want[i], a.Kind())
			if err != nil {
				t.Fatalf("field %q: %v", want[i], err)
			}
			if !a.Equal(b) {
				t.Fatalf("field %q is %v, want %v", want[i], b, a)
			}
		}
	})
}

// TestProperty_SetKeepsFirstInsertionOrder checks Keys against a model of
// insert-or-overwrite semantics.
func TestProperty_SetKeepsFirstInsertionOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msg := NewMessage()
		var order []string
		seen := map[string]int64{}

		ops := rapid.IntRange(0, 30).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			key := rapid.SampledFrom([]string{"a", "b", "c", "d", "e"}).Draw(t, "key")
			v := rapid.Int64().Draw(t, "v")
			if _, ok := seen[key]; !ok {
				order = append(order, key)
			}
			seen[key] = v
			msg.SetInt(key, v)
		}

		keys := msg.Keys()
		if len(keys) != len(order) {
			t.Fatalf("keys %v, want %v", keys, order)
		}
		for i, k := range order {
			if keys[i] != k {
				t.Fatalf("keys %v, want %v", keys, order)
			}
			got, err := msg.GetInt(k)
			if err != nil || got != seen[k] {
				t.Fatalf("%q = %d (%v), want %d", k, got, err, seen[k])
			}
		}
	})
}

// TestProperty_GetWrongKindFails: reading a field under any other kind
// fails and never returns a converted value.
func TestProperty_GetWrongKindFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := valueGen().Draw(t, "value")
		other := Kind(rapid.IntRange(int(KindInt), int(KindStringArray)).
			Filter(func(k int) bool { return Kind(k) != v.Kind() }).
			Draw(t, "other"))

		msg := NewMessage().Set("field", v)
		if _, err := msg.Get("field", other); err == nil {
			t.Fatalf("reading %s as %s succeeded", v.Kind(), other)
		}
		if _, err := msg.Get("field", v.Kind()); err != nil {
			t.Fatalf("reading %s as itself: %v", v.Kind(), err)
		}
	})
}
