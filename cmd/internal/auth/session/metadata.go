package session

import (
	"encoding/json"
	"strconv"
)

// Reserved metadata keys maintained by the manager.
const (
	MetaRotationCount = "rotationCount"
	MetaPreviousID    = "previousId"
)

// Kind identifies the primitive type carried by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is a primitive metadata value.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue returns an int64 Value.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue returns a float64 Value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue returns a bool Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's primitive kind.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int returns the int64 payload and whether v is an int.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float64 payload and whether v is a float.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Bool returns the bool payload and whether v is a bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Any returns the payload as an untyped Go value (string, int64, float64 or bool).
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return v.s
	}
}

// String renders the value for logs.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// MarshalJSON encodes the bare primitive.
func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.Any()) }

// Field is a single metadata entry.
type Field struct {
	Key   string
	Value Value
}

// Metadata is a small ordered map from string keys to primitive values.
// Insertion order is preserved; Set on an existing key keeps its position.
//
// The zero value is empty and ready to use.
type Metadata struct {
	fields []Field
}

// NewMetadata builds Metadata from fields. Later duplicates overwrite earlier ones.
func NewMetadata(fields ...Field) Metadata {
	var m Metadata
	for _, f := range fields {
		m.Set(f.Key, f.Value)
	}
	return m
}

// Len returns the number of entries.
func (m Metadata) Len() int { return len(m.fields) }

// Get returns the value stored under key.
func (m Metadata) Get(key string) (Value, bool) {
	for _, f := range m.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set inserts or replaces key.
func (m *Metadata) Set(key string, v Value) {
	for i := range m.fields {
		if m.fields[i].Key == key {
			m.fields[i].Value = v
			return
		}
	}
	m.fields = append(m.fields, Field{Key: key, Value: v})
}

// Fields returns a copy of the entries in order.
func (m Metadata) Fields() []Field {
	if len(m.fields) == 0 {
		return nil
	}
	return append([]Field(nil), m.fields...)
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata { return Metadata{fields: m.Fields()} }

// RotationCount returns the reserved rotation counter (0 when absent).
func (m Metadata) RotationCount() int64 {
	v, ok := m.Get(MetaRotationCount)
	if !ok {
		return 0
	}
	n, _ := v.Int()
	return n
}

// MarshalJSON encodes the entries as a JSON object in insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range m.fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}
