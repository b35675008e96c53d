/*
Package header provides filters extracting request headers.

Value and Parse reject requests without the header with
KindMissingHeader, Exact and Parse reject unexpected values with
KindInvalidHeader. Optional never fails.
*/
package header

import (
	"github.com/zalando/sieve/filters"
)

// Value returns a filter extracting the first value of the header name as
// a string.
func Value(name string) filters.Filter {
	return filters.Extract(func(c *filters.Context) (string, error) {
		values := c.Request().Header.Values(name)
		if len(values) == 0 {
			return "", filters.MissingHeader(name)
		}

		return values[0], nil
	})
}

// Optional returns an infallible filter extracting all the values of the
// header name as a []string, nil when the header is not present.
func Optional(name string) filters.Filter {
	return filters.Provide(func(c *filters.Context) []string {
		return c.Request().Header.Values(name)
	})
}

// Exact returns a filter that accepts only requests where the first value
// of the header name equals value. It extracts nothing.
func Exact(name, value string) filters.Filter {
	return filters.Func(func(c *filters.Context) (filters.Tuple, error) {
		values := c.Request().Header.Values(name)
		switch {
		case len(values) == 0:
			return nil, filters.MissingHeader(name)
		case values[0] != value:
			return nil, filters.InvalidHeader(name, nil)
		default:
			return nil, nil
		}
	})
}

// Parse returns a filter extracting the first value of the header name,
// converted with parse.
func Parse[T any](name string, parse func(string) (T, error)) filters.Filter {
	return filters.Extract(func(c *filters.Context) (T, error) {
		values := c.Request().Header.Values(name)
		if len(values) == 0 {
			var zero T
			return zero, filters.MissingHeader(name)
		}

		v, err := parse(values[0])
		if err != nil {
			return v, filters.InvalidHeader(name, err)
		}

		return v, nil
	})
}
