/*
Package extensions implements the per-request extension store: a map of
side-channel facts keyed by their Go type.

The transport records facts about a request before the filter chain runs,
e.g. the address of the connected peer, and filters read them back
without knowing who recorded them:

	ext := extensions.New()
	extensions.Insert(ext, peer{addr})
	...
	p, ok := extensions.Get[peer](ext)

The key is the static type argument of Insert and Get. Two declared types
are always distinct keys, even when their underlying types are identical,
so packages usually key their facts on an unexported wrapper type.

An Extensions value belongs to a single request and is not synchronized.
*/
package extensions

import "reflect"

// Extensions stores at most one value per type.
type Extensions struct {
	values map[reflect.Type]any
}

// New creates an empty store.
func New() *Extensions {
	return &Extensions{values: make(map[reflect.Type]any)}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Insert stores v, replacing the value of type T stored earlier, if any.
// A nil store is read-only, Insert does nothing on it.
func Insert[T any](e *Extensions, v T) {
	if e == nil {
		return
	}

	if e.values == nil {
		e.values = make(map[reflect.Type]any)
	}

	e.values[keyOf[T]()] = v
}

// Get returns the value of type T and true, or the zero value and false
// when no value of type T was inserted. It is safe to call on a nil
// store.
func Get[T any](e *Extensions) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}

	v, ok := e.values[keyOf[T]()]
	if !ok {
		return zero, false
	}

	// a nil interface value is stored as a nil any
	t, _ := v.(T)
	return t, true
}

// Has tells whether a value of type T is stored.
func Has[T any](e *Extensions) bool {
	if e == nil {
		return false
	}

	_, ok := e.values[keyOf[T]()]
	return ok
}

// Remove deletes the value of type T and returns it.
func Remove[T any](e *Extensions) (T, bool) {
	v, ok := Get[T](e)
	if ok {
		delete(e.values, keyOf[T]())
	}

	return v, ok
}

// Len returns the number of stored values.
func (e *Extensions) Len() int {
	if e == nil {
		return 0
	}

	return len(e.values)
}

// Clone returns a shallow copy of the store. Values themselves are not
// copied.
func (e *Extensions) Clone() *Extensions {
	c := New()
	if e == nil {
		return c
	}

	for k, v := range e.values {
		c.values[k] = v
	}

	return c
}
