// Package filtertest provides helpers for testing filters.
package filtertest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/zalando/sieve/extensions"
	"github.com/zalando/sieve/filters"
)

// Filter is a filter returning the configured values or error, and
// counting its evaluations.
type Filter struct {
	FTuple filters.Tuple
	FError error

	calls atomic.Int64
}

// Context describes a filter context. Unset fields get defaults: a GET
// request to /, an empty extension store and the context of the request.
type Context struct {
	FRequest    *http.Request
	FExtensions *extensions.Extensions
	FContext    context.Context
}

func (f *Filter) Filter(*filters.Context) (filters.Tuple, error) {
	f.calls.Add(1)
	return f.FTuple, f.FError
}

// Calls returns how many times the filter was evaluated.
func (f *Filter) Calls() int { return int(f.calls.Load()) }

// Succeed returns a test filter extracting values.
func Succeed(values ...any) *Filter {
	return &Filter{FTuple: filters.Tuple(values)}
}

// Fail returns a test filter failing with err.
func Fail(err error) *Filter {
	return &Filter{FError: err}
}

// New creates the filter context.
func (fc *Context) New() *filters.Context {
	r := fc.FRequest
	if r == nil {
		r = httptest.NewRequest("GET", "/", nil)
	}

	ext := fc.FExtensions
	if ext == nil {
		ext = extensions.New()
	}

	c := filters.NewContext(r, ext)
	if fc.FContext != nil {
		c = c.WithContext(fc.FContext)
	}

	return c
}

// NewContext creates a filter context for a GET request to / with the
// headers set from name/value pairs.
func NewContext(header ...string) *filters.Context {
	r := httptest.NewRequest("GET", "/", nil)
	for i := 0; i+1 < len(header); i += 2 {
		r.Header.Add(header[i], header[i+1])
	}

	return (&Context{FRequest: r}).New()
}
