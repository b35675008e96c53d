package filters

import (
	"reflect"

	"github.com/zalando/sieve/extensions"
)

// Extension returns a filter extracting the value of type T from the
// extension store of the request. It rejects the request with
// KindMissingExtension when no such value was recorded.
func Extension[T any]() Filter {
	return Extract(func(c *Context) (T, error) {
		v, ok := extensions.Get[T](c.Extensions())
		if !ok {
			return v, MissingExtension(reflect.TypeFor[T]().String())
		}

		return v, nil
	})
}

// OptionalExtension returns an infallible filter extracting the value of
// type T from the extension store, and whether it was found.
func OptionalExtension[T any]() Filter {
	return Infallible(func(c *Context) Tuple {
		v, ok := extensions.Get[T](c.Extensions())
		return Tuple{v, ok}
	})
}
