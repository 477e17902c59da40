package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// AnswerSet is a key/value map that remembers submission order. JSON objects
// lose ordering through map[string]any, but the navigator needs "the last
// key saved in this call" to be well defined, so decoding walks the object
// tokens instead.
type AnswerSet struct {
	keys   []string
	values map[string]any
}

func NewAnswerSet() *AnswerSet {
	return &AnswerSet{values: make(map[string]any)}
}

// Set adds or replaces a value and reports whether the stored value
// changed. A replaced key keeps its original position.
func (a *AnswerSet) Set(key string, value any) bool {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	prev, existed := a.values[key]
	if !existed {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
	return !existed || !reflect.DeepEqual(prev, value)
}

func (a *AnswerSet) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys returns the keys in submission order.
func (a *AnswerSet) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

func (a *AnswerSet) Len() int {
	return len(a.keys)
}

// Filter returns a new set holding only the keys accepted by keep, in the
// original order.
func (a *AnswerSet) Filter(keep func(key string) bool) *AnswerSet {
	out := NewAnswerSet()
	for _, k := range a.keys {
		if keep(k) {
			out.Set(k, a.values[k])
		}
	}
	return out
}

func (a *AnswerSet) UnmarshalJSON(data []byte) error {
	a.keys = nil
	a.values = make(map[string]any)

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode answers: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("answers must be a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode answer key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("answer key is not a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode answer %q: %w", key, err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode answer %q: %w", key, err)
		}
		a.Set(key, value)
	}

	return nil
}

func (a *AnswerSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromMap builds an AnswerSet from a plain map. Ordering follows no
// particular sequence; callers that care about order should use Set or JSON
// decoding.
func FromMap(m map[string]any) *AnswerSet {
	out := NewAnswerSet()
	for k, v := range m {
		out.Set(k, v)
	}
	return out
}
