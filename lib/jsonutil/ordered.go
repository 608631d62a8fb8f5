package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OrderedMap is a string keyed map that remembers insertion order, it marshals to
// a JSON object with its keys in that order and unmarshals keeping document order.
//
// A nil *OrderedMap marshals to null.
type OrderedMap[V any] struct {
	inner *orderedmap.OrderedMap[string, V]
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{inner: orderedmap.New[string, V]()}
}

func (m *OrderedMap[V]) init() {
	if m.inner == nil {
		m.inner = orderedmap.New[string, V]()
	}
}

func (m *OrderedMap[V]) Len() int {
	if m == nil || m.inner == nil {
		return 0
	}
	return m.inner.Len()
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	if m == nil || m.inner == nil {
		var zero V
		return zero, false
	}
	return m.inner.Get(key)
}

// Set stores value under key, a new key is appended to the end of the order
// while an existing key keeps its position.
func (m *OrderedMap[V]) Set(key string, value V) {
	m.init()
	m.inner.Set(key, value)
}

// Keys returns a copy of the keys in order.
func (m *OrderedMap[V]) Keys() []string {
	if m.Len() == 0 {
		return nil
	}
	out := make([]string, 0, m.inner.Len())
	for pair := m.inner.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Clone returns a shallow copy.
func (m *OrderedMap[V]) Clone() *OrderedMap[V] {
	out := NewOrderedMap[V]()
	if m.Len() == 0 {
		return out
	}
	for pair := m.inner.Oldest(); pair != nil; pair = pair.Next() {
		out.inner.Set(pair.Key, pair.Value)
	}
	return out
}

// Reorder moves the given keys, in the given order, to the front. Keys that are
// not present are ignored.
func (m *OrderedMap[V]) Reorder(first ...string) {
	if m.Len() == 0 {
		return
	}
	for i := len(first) - 1; i >= 0; i-- {
		// a missing key is the only error
		_ = m.inner.MoveToFront(first[i])
	}
}

// MarshalJSON writes the pairs itself instead of going through the inner map,
// keys are written without <, > and & escaping like the values.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m.inner != nil {
		for pair := m.inner.Oldest(); pair != nil; pair = pair.Next() {
			if buf.Len() > 1 {
				buf.WriteByte(',')
			}
			key, err := marshalUnescaped(pair.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			value, err := marshalUnescaped(pair.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal %q: %w", pair.Key, err)
			}
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	m.inner = orderedmap.New[string, V]()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return m.inner.UnmarshalJSON(data)
}

// marshalUnescaped is json.Marshal without the <, > and & escaping, the datasets
// are read by people and item names are full of ampersands.
func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
