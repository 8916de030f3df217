package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/steer-2025.net/internal/static/errs"
)

func TestMessage_SetAndGet(t *testing.T) {
	msg := NewMessage().
		SetInt("n", 42).
		SetFloat("f", 1.5).
		SetBool("ok", true).
		SetString("s", "hello").
		SetInts("ns", []int64{1, 2, 3}).
		SetFloats("fs", []float64{0.25, -3}).
		SetBools("bs", []bool{true, false}).
		SetStrings("ss", []string{"a", "b"})

	n, err := msg.GetInt("n")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	f, err := msg.GetFloat("f")
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	ok, err := msg.GetBool("ok")
	require.NoError(t, err)
	assert.True(t, ok)

	s, err := msg.GetString("s")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	ns, err := msg.GetInts("ns")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ns)

	fs, err := msg.GetFloats("fs")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -3}, fs)

	bs, err := msg.GetBools("bs")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, bs)

	ss, err := msg.GetStrings("ss")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ss)

	assert.Equal(t, []string{"n", "f", "ok", "s", "ns", "fs", "bs", "ss"}, msg.Keys())
	assert.Equal(t, 8, msg.Len())
}

func TestMessage_LookupErrors(t *testing.T) {
	msg := NewMessage().SetInt("n", 1)

	_, err := msg.GetString("missing")
	assert.ErrorIs(t, err, errs.ErrLookup)

	_, err = msg.GetString("n")
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)

	_, err = msg.GetFloat("n")
	assert.ErrorIs(t, err, errs.ErrTypeMismatch, "an int is never read back as a float")

	_, err = msg.Get("n", KindIntArray)
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestMessage_OverwriteKeepsPosition(t *testing.T) {
	msg := NewMessage().SetInt("a", 1).SetInt("b", 2).SetInt("c", 3)
	msg.SetString("a", "replaced")

	assert.Equal(t, []string{"a", "b", "c"}, msg.Keys())
	s, err := msg.GetString("a")
	require.NoError(t, err)
	assert.Equal(t, "replaced", s)
	_, err = msg.GetInt("a")
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestMessage_ArraysAreCopied(t *testing.T) {
	in := []float64{1, 2, 3}
	msg := NewMessage().SetFloats("x", in)
	in[0] = 99

	out, err := msg.GetFloats("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, out)

	out[1] = 42
	again, err := msg.GetFloats("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, again)
}

func TestMessage_ClearAndReuse(t *testing.T) {
	msg := NewMessage().SetInt("a", 1).SetString("b", "x")
	msg.Clear()

	assert.Equal(t, 0, msg.Len())
	assert.False(t, msg.Has("a"))
	assert.Empty(t, msg.Keys())

	msg.SetBool("c", true)
	assert.Equal(t, []string{"c"}, msg.Keys())
}

func TestMessage_CloneIsIndependent(t *testing.T) {
	orig := NewMessage().SetInts("ns", []int64{1, 2}).SetString("s", "x")
	cp := orig.Clone()
	orig.Clear()

	assert.Equal(t, 2, cp.Len())
	ns, err := cp.GetInts("ns")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ns)
}

func TestMessage_ZeroValueIsUsable(t *testing.T) {
	var msg Message
	msg.SetInt("a", 1)
	assert.True(t, msg.Has("a"))
}

func TestMessage_JSONWireForm(t *testing.T) {
	msg := NewMessage().SetInt("worker_id", 3).SetFloats("x", []float64{0.5})

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"key":"worker_id","kind":"int","value":3},{"key":"x","kind":"float[]","value":[0.5]}]`,
		string(data))
}

func TestMessage_JSONKeepsIntegerTag(t *testing.T) {
	msg := NewMessage().SetInt("big", 1<<53+1).SetFloat("whole", 2)

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	decoded := NewMessage()
	require.NoError(t, json.Unmarshal(data, decoded))

	big, err := decoded.GetInt("big")
	require.NoError(t, err)
	assert.Equal(t, int64(1<<53+1), big)

	whole, err := decoded.GetFloat("whole")
	require.NoError(t, err)
	assert.Equal(t, 2.0, whole)
}

func TestMessage_UnmarshalRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown kind", data: `[{"key":"a","kind":"complex","value":1}]`},
		{name: "kind mismatch", data: `[{"key":"a","kind":"int","value":"x"}]`},
		{name: "fractional int", data: `[{"key":"a","kind":"int","value":1.5}]`},
		{name: "heterogeneous array", data: `[{"key":"a","kind":"int[]","value":[1,"b"]}]`},
		{name: "unknown field", data: `[{"key":"a","kind":"int","value":1,"extra":true}]`},
		{name: "not an array", data: `{"a":1}`},
		{name: "unknown float token", data: `[{"key":"a","kind":"float","value":"Infinity"}]`},
		{name: "unknown encoding", data: `[{"key":"a","kind":"string","encoding":"hex","value":"ff"}]`},
		{name: "base64 int", data: `[{"key":"a","kind":"int","encoding":"base64","value":"AQ=="}]`},
		{name: "bad base64", data: `[{"key":"a","kind":"string","encoding":"base64","value":"%%"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := json.Unmarshal([]byte(tt.data), NewMessage())
			assert.Error(t, err)
		})
	}
}

func roundTrip(t *testing.T, msg *Message) (*Message, string) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	decoded := NewMessage()
	require.NoError(t, json.Unmarshal(data, decoded))
	return decoded, string(data)
}

func TestMessage_JSONCarriesNonFiniteFloats(t *testing.T) {
	msg := NewMessage().
		SetFloat("f", math.Inf(1)).
		SetFloats("fs", []float64{math.NaN(), math.Inf(-1), 1.5})

	decoded, data := roundTrip(t, msg)
	assert.JSONEq(t, `[
		{"key":"f","kind":"float","value":"+Inf"},
		{"key":"fs","kind":"float[]","value":["NaN","-Inf",1.5]}
	]`, data)

	f, err := decoded.GetFloat("f")
	require.NoError(t, err)
	assert.True(t, math.IsInf(f, 1))

	fs, err := decoded.GetFloats("fs")
	require.NoError(t, err)
	require.Len(t, fs, 3)
	assert.True(t, math.IsNaN(fs[0]))
	assert.True(t, math.IsInf(fs[1], -1))
	assert.Equal(t, 1.5, fs[2])

	a, _ := msg.Get("fs", KindFloatArray)
	b, _ := decoded.Get("fs", KindFloatArray)
	assert.True(t, a.Equal(b))
}

func TestMessage_JSONCarriesInvalidUTF8(t *testing.T) {
	msg := NewMessage().
		SetString("raw", "\xff\xfe").
		SetString("text", "héllo").
		SetStrings("mixed", []string{"ok", "\x80"})

	decoded, data := roundTrip(t, msg)
	assert.JSONEq(t, `[
		{"key":"raw","kind":"string","encoding":"base64","value":"//4="},
		{"key":"text","kind":"string","value":"héllo"},
		{"key":"mixed","kind":"string[]","encoding":"base64","value":["b2s=","gA=="]}
	]`, data)

	raw, err := decoded.GetString("raw")
	require.NoError(t, err)
	assert.Equal(t, "\xff\xfe", raw)

	mixed, err := decoded.GetStrings("mixed")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "\x80"}, mixed)
}

func TestMessage_MarshalRejectsInvalidFieldName(t *testing.T) {
	_, err := json.Marshal(NewMessage().SetInt("\xff", 1))
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestMessage_UnmarshalReplacesContents(t *testing.T) {
	msg := NewMessage().SetInt("stale", 1)
	require.NoError(t, json.Unmarshal([]byte(`[{"key":"fresh","kind":"bool","value":true}]`), msg))

	assert.Equal(t, []string{"fresh"}, msg.Keys())
}

func TestKind_ParseRoundTrip(t *testing.T) {
	for k := KindInt; k <= KindStringArray; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("nope")
	assert.Error(t, err)
}

func TestVocabulary(t *testing.T) {
	hello := NewHello(4)
	id, err := hello.GetInt(FieldWorkerID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
	status, err := hello.GetString(FieldStatus)
	require.NoError(t, err)
	assert.Equal(t, StatusInitialHello, status)

	wake := NewWaitDone(2)
	status, err = wake.GetString(FieldStatus)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitDone, status)

	name, err := CommandName(NewCommand(CommandShutdown))
	require.NoError(t, err)
	assert.Equal(t, CommandShutdown, name)

	_, err = CommandName(NewMessage())
	assert.ErrorIs(t, err, errs.ErrLookup)
	_, err = CommandName(NewMessage().SetInt(FieldCommand, 1))
	assert.ErrorIs(t, err, errs.ErrTypeMismatch)
}
