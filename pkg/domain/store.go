package domain

import (
	"encoding/json"
	"sort"
)

// FieldStore holds the value of every field declared by a wizard.
// It is immutable from the caller's perspective: Set returns a new store and
// leaves the receiver untouched.
type FieldStore struct {
	values map[string]Value
}

// NewFieldStore creates a store whose key set is exactly the keys of defaults.
func NewFieldStore(defaults map[string]Value) FieldStore {
	values := make(map[string]Value, len(defaults))
	for k, v := range defaults {
		values[k] = CloneValue(v)
	}
	return FieldStore{values: values}
}

// Get returns the current value of a declared field.
func (s FieldStore) Get(name string) (Value, error) {
	v, ok := s.values[name]
	if !ok {
		return nil, &UnknownFieldError{Field: name}
	}
	return CloneValue(v), nil
}

// Value is Get without the error, for callers that already validated the name.
// Unknown names yield nil. Like Get it returns a copy.
func (s FieldStore) Value(name string) Value {
	return CloneValue(s.values[name])
}

// Has reports whether the field was declared.
func (s FieldStore) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Set replaces exactly one field value and returns the resulting store.
func (s FieldStore) Set(name string, v Value) (FieldStore, error) {
	if _, ok := s.values[name]; !ok {
		return s, &UnknownFieldError{Field: name}
	}
	next := make(map[string]Value, len(s.values))
	for k, existing := range s.values {
		next[k] = existing
	}
	next[name] = CloneValue(v)
	return FieldStore{values: next}, nil
}

// Keys returns the declared field names in lexical order.
func (s FieldStore) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of declared fields.
func (s FieldStore) Len() int {
	return len(s.values)
}

// Snapshot returns a deep copy of all values.
func (s FieldStore) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = CloneValue(v)
	}
	return out
}

func (s FieldStore) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

func (s *FieldStore) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.values = make(map[string]Value, len(raw))
	for k, v := range raw {
		s.values[k] = Normalize(v)
	}
	return nil
}
