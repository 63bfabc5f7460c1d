package domain

import "strings"

// Optional is an explicit maybe-value.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether a value is held.
func (o Optional[T]) Present() bool {
	return o.ok
}

// OrElse returns the value or fallback when absent.
func (o Optional[T]) OrElse(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

// Resolve walks a precedence list of dotted paths over nested maps and returns
// the first non-empty value. It replaces ad hoc chains like a.b.c || a.d.e.
func Resolve(values map[string]any, paths ...string) Optional[Value] {
	for _, path := range paths {
		if v, ok := lookup(values, path); ok && !IsEmpty(v) {
			return Some[Value](v)
		}
	}
	return None[Value]()
}

// ResolveString is Resolve rendered as display text.
func ResolveString(values map[string]any, paths ...string) Optional[string] {
	v, ok := Resolve(values, paths...).Get()
	if !ok {
		return None[string]()
	}
	return Some(AsString(v))
}

func lookup(values map[string]any, path string) (Value, bool) {
	var current any = values
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
