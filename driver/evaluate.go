package driver

import (
	"fmt"

	"github.com/zalando/sieve/filters"
)

// Evaluate runs f for the request of c. It returns the extracted values,
// or a *filters.Rejection, or the error of the request context when the
// request was abandoned. When the request is already abandoned, f is not
// evaluated.
//
// A filter that reports itself infallible and fails anyway results in an
// error wrapping filters.ErrNever.
func Evaluate(f filters.Filter, c *filters.Context) (filters.Tuple, error) {
	if err := c.Context().Err(); err != nil {
		return nil, err
	}

	t, err := f.Filter(c)
	switch {
	case err == nil:
		return t, nil
	case filters.IsAbandoned(err):
		return nil, err
	case filters.IsInfallible(f):
		return nil, fmt.Errorf("%w: %s: %w", filters.ErrNever, describe(f), err)
	default:
		return nil, filters.AsRejection(err)
	}
}

func describe(f filters.Filter) string {
	if name := filters.NameOf(f); name != "" {
		return name
	}

	return fmt.Sprintf("%T", f)
}
