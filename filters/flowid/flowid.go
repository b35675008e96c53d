package flowid

import (
	"net/http"

	"github.com/zalando/sieve/extensions"
	"github.com/zalando/sieve/filters"
)

// HeaderName is the header carrying the flow id of a request and its
// response.
const HeaderName = "X-Flow-Id"

type flowID string

var get = filters.Provide(func(c *filters.Context) string {
	return From(c.Extensions())
})

// Record stores the flow id in the extensions of a request. Empty ids are
// ignored.
func Record(e *extensions.Extensions, id string) {
	if id == "" {
		return
	}

	extensions.Insert(e, flowID(id))
}

// From returns the flow id recorded in e, or "".
func From(e *extensions.Extensions) string {
	id, _ := extensions.Get[flowID](e)
	return string(id)
}

// Get returns a filter extracting the flow id of the request. It never
// rejects, and extracts "" when no flow id was recorded.
func Get() filters.Filter { return get }

// Resolve returns the flow id to use for r. When reuse is set and r
// carries an id valid for g, that id is returned, otherwise g generates
// a new one.
func Resolve(r *http.Request, g Generator, reuse bool) (string, error) {
	if reuse {
		if id := r.Header.Get(HeaderName); id != "" && g.IsValid(id) {
			return id, nil
		}
	}

	return g.Generate()
}
