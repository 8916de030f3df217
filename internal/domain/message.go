package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"gitlab.com/steer-2025.net/internal/static/errs"
)

// Message is the only payload exchanged between master and workers: an
// insertion-ordered map from field name to tagged Value. A Message is
// owned by exactly one side at a time and is not safe for concurrent use.
// Owners call Clear once the payload has been consumed and before reuse.
type Message struct {
	keys    []string
	entries map[string]Value
}

// NewMessage returns an empty message.
func NewMessage() *Message {
	return &Message{entries: make(map[string]Value)}
}

// Set inserts or overwrites key. An overwritten key keeps its position.
func (m *Message) Set(key string, v Value) *Message {
	if m.entries == nil {
		m.entries = make(map[string]Value)
	}
	if _, exists := m.entries[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
	return m
}

func (m *Message) SetInt(key string, v int64) *Message        { return m.Set(key, Int(v)) }
func (m *Message) SetFloat(key string, v float64) *Message    { return m.Set(key, Float(v)) }
func (m *Message) SetBool(key string, v bool) *Message        { return m.Set(key, Bool(v)) }
func (m *Message) SetString(key string, v string) *Message    { return m.Set(key, String(v)) }
func (m *Message) SetInts(key string, v []int64) *Message     { return m.Set(key, Ints(v)) }
func (m *Message) SetFloats(key string, v []float64) *Message { return m.Set(key, Floats(v)) }
func (m *Message) SetBools(key string, v []bool) *Message     { return m.Set(key, Bools(v)) }
func (m *Message) SetStrings(key string, v []string) *Message { return m.Set(key, Strings(v)) }

// Get returns the value stored under key. It fails with errs.ErrLookup if
// the key is absent and errs.ErrTypeMismatch if it holds another kind.
func (m *Message) Get(key string, kind Kind) (Value, error) {
	v, ok := m.entries[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", errs.ErrLookup, key)
	}
	if v.kind != kind {
		return Value{}, fmt.Errorf("%w: %q is %s, want %s", errs.ErrTypeMismatch, key, v.kind, kind)
	}
	return v, nil
}

func (m *Message) GetInt(key string) (int64, error) {
	v, err := m.Get(key, KindInt)
	if err != nil {
		return 0, err
	}
	return v.data.(int64), nil
}

func (m *Message) GetFloat(key string) (float64, error) {
	v, err := m.Get(key, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.data.(float64), nil
}

func (m *Message) GetBool(key string) (bool, error) {
	v, err := m.Get(key, KindBool)
	if err != nil {
		return false, err
	}
	return v.data.(bool), nil
}

func (m *Message) GetString(key string) (string, error) {
	v, err := m.Get(key, KindString)
	if err != nil {
		return "", err
	}
	return v.data.(string), nil
}

func (m *Message) GetInts(key string) ([]int64, error) {
	v, err := m.Get(key, KindIntArray)
	if err != nil {
		return nil, err
	}
	return v.Interface().([]int64), nil
}

func (m *Message) GetFloats(key string) ([]float64, error) {
	v, err := m.Get(key, KindFloatArray)
	if err != nil {
		return nil, err
	}
	return v.Interface().([]float64), nil
}

func (m *Message) GetBools(key string) ([]bool, error) {
	v, err := m.Get(key, KindBoolArray)
	if err != nil {
		return nil, err
	}
	return v.Interface().([]bool), nil
}

func (m *Message) GetStrings(key string) ([]string, error) {
	v, err := m.Get(key, KindStringArray)
	if err != nil {
		return nil, err
	}
	return v.Interface().([]string), nil
}

// Has reports whether key is present, whatever its kind.
func (m *Message) Has(key string) bool {
	_, ok := m.entries[key]
	return ok
}

// Keys returns the field names in insertion order.
func (m *Message) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Message) Len() int { return len(m.keys) }

// Clear releases all entries; the message is empty and reusable afterwards.
func (m *Message) Clear() {
	m.keys = m.keys[:0]
	clear(m.entries)
}

// Clone returns a deep copy.
func (m *Message) Clone() *Message {
	out := &Message{
		keys:    make([]string, len(m.keys)),
		entries: make(map[string]Value, len(m.entries)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.entries {
		out.entries[k] = v.clone()
	}
	return out
}

func (m *Message) GoString() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, m.entries[k].data)
	}
	b.WriteByte('}')
	return b.String()
}

type wireField struct {
	Key      string          `json:"key"`
	Kind     string          `json:"kind"`
	Encoding string          `json:"encoding,omitempty"`
	Value    json.RawMessage `json:"value"`
}

// MarshalJSON encodes the message as an ordered array of tagged fields.
// Every message a transport accepts in memory encodes losslessly:
// non-finite floats become string tokens and strings that are not valid
// UTF-8 travel base64 encoded. A key that is not valid UTF-8 is rejected
// with errs.ErrTypeMismatch.
func (m *Message) MarshalJSON() ([]byte, error) {
	fields := make([]wireField, 0, len(m.keys))
	for _, k := range m.keys {
		if !utf8.ValidString(k) {
			return nil, fmt.Errorf("%w: field name %q is not valid UTF-8", errs.ErrTypeMismatch, k)
		}
		v := m.entries[k]
		raw, encoding, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		fields = append(fields, wireField{Key: k, Kind: v.kind.String(), Encoding: encoding, Value: raw})
	}
	return json.Marshal(fields)
}

// UnmarshalJSON replaces the message contents with the decoded fields.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields []wireField
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	if m.entries == nil {
		m.entries = make(map[string]Value, len(fields))
	}
	m.Clear()
	for _, f := range fields {
		kind, err := ParseKind(f.Kind)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", errs.ErrTypeMismatch, f.Key, err)
		}
		v, err := decodeValue(kind, f.Value, f.Encoding)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Key, err)
		}
		m.Set(f.Key, v)
	}
	return nil
}
