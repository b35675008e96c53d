package filters

// Tuple holds the values extracted by a filter, in order. An empty or nil
// tuple means that the filter extracted nothing. Tuples returned by
// filters must not be modified.
type Tuple []any

// Concat returns the values of a followed by the values of b. An empty
// tuple contributes nothing, so concatenating tuples never nests them.
func Concat(a, b Tuple) Tuple {
	switch {
	case len(a) == 0:
		return b
	case len(b) == 0:
		return a
	}

	t := make(Tuple, 0, len(a)+len(b))
	t = append(t, a...)
	return append(t, b...)
}

// Value returns the i-th value of t if it exists and has the type T.
func Value[T any](t Tuple, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(t) {
		return zero, false
	}

	v, ok := t[i].(T)
	return v, ok
}

// Len returns the number of values.
func (t Tuple) Len() int { return len(t) }
