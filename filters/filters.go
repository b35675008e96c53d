package filters

import (
	"context"
	"errors"
	"net/http"

	"github.com/zalando/sieve/extensions"
)

// ErrNever is reported when a filter that is declared infallible fails.
// It signals a programming error: none of the infallible filters of this
// module can produce it.
var ErrNever = errors.New("infallible filter failed")

// Context is passed to each filter evaluated for a request. It provides
// the request, the request's extension store and the context used for
// cancellation.
//
// A Context is owned by a single evaluation and must not be shared
// between requests.
type Context struct {
	ctx        context.Context
	request    *http.Request
	extensions *extensions.Extensions
}

// Filter is the interface implemented by all filters.
//
// Filter evaluates the filter against c. On success it returns the
// extracted values, possibly an empty tuple. Implementations must be safe
// for concurrent use.
type Filter interface {
	Filter(c *Context) (Tuple, error)
}

// Func adapts a function to a Filter.
type Func func(*Context) (Tuple, error)

type infallible interface {
	Infallible() bool
}

type neverFails func(*Context) Tuple

type named struct {
	name   string
	filter Filter
}

// NewContext creates the context for evaluating filters on r. When ext is
// nil, an empty store is used.
func NewContext(r *http.Request, ext *extensions.Extensions) *Context {
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}

	if ext == nil {
		ext = extensions.New()
	}

	return &Context{ctx: ctx, request: r, extensions: ext}
}

// Request returns the incoming request. It must be treated as read-only.
func (c *Context) Request() *http.Request { return c.request }

// Extensions returns the extension store of the request. It is nil for a
// zero Context, which makes the store read-only.
func (c *Context) Extensions() *extensions.Extensions { return c.extensions }

// Context returns the context of the evaluation, or context.Background()
// for a zero Context.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}

	return c.ctx
}

// WithContext returns a copy of c using ctx. The copy shares the request
// and the extension store with c.
func (c *Context) WithContext(ctx context.Context) *Context {
	cc := *c
	cc.ctx = ctx
	return &cc
}

func (f Func) Filter(c *Context) (Tuple, error) { return f(c) }

func (f neverFails) Filter(c *Context) (Tuple, error) { return f(c), nil }

func (neverFails) Infallible() bool { return true }

// Infallible creates a filter that cannot fail.
func Infallible(f func(*Context) Tuple) Filter {
	return neverFails(f)
}

// IsInfallible tells whether f was constructed so that it cannot fail.
func IsInfallible(f Filter) bool {
	i, ok := f.(infallible)
	return ok && i.Infallible()
}

// Extract creates a fallible filter extracting a single value.
func Extract[T any](f func(*Context) (T, error)) Filter {
	return Func(func(c *Context) (Tuple, error) {
		v, err := f(c)
		if err != nil {
			return nil, err
		}

		return Tuple{v}, nil
	})
}

// Provide creates an infallible filter extracting a single value.
func Provide[T any](f func(*Context) T) Filter {
	return Infallible(func(c *Context) Tuple {
		return Tuple{f(c)}
	})
}

var always = Infallible(func(*Context) Tuple { return nil })

// Any returns a filter that always succeeds and extracts nothing.
func Any() Filter { return always }

// Reject returns a filter that always fails with r.
func Reject(r *Rejection) Filter {
	return Func(func(*Context) (Tuple, error) {
		return nil, r
	})
}

// Named wraps f with a name. The name is used for logging and tracing by
// the driver, and does not change the behavior of f.
func Named(name string, f Filter) Filter {
	return &named{name: name, filter: f}
}

// NameOf returns the name of a filter created with Named, or an empty
// string.
func NameOf(f Filter) string {
	if n, ok := f.(*named); ok {
		return n.name
	}

	return ""
}

func (n *named) Filter(c *Context) (Tuple, error) { return n.filter.Filter(c) }

func (n *named) Infallible() bool { return IsInfallible(n.filter) }

// IsAbandoned tells whether err means that the evaluation was abandoned
// because the context of the request was canceled or timed out.
func IsAbandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
