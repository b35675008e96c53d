package driver

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/sieve/extensions"
	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/addr"
	"github.com/zalando/sieve/filters/flowid"
	snet "github.com/zalando/sieve/net"
)

// PopulateFunc adds facts about a request to its extensions, before the
// filters are evaluated.
type PopulateFunc func(*http.Request, *extensions.Extensions)

// ContextOptions configure the preparation of request contexts.
type ContextOptions struct {

	// FlowIDGenerator creates the flow ids of requests. When not set,
	// no flow id is recorded.
	FlowIDGenerator flowid.Generator

	// ReuseFlowID enables accepting the flow id of the incoming
	// request, when it is valid for the generator.
	ReuseFlowID bool

	// Populate hooks run in order, after the built-in facts were
	// recorded.
	Populate []PopulateFunc
}

// NewContext creates the context of a request with a new extension store
// holding the address of the connected peer, the flow id and the facts
// added by the Populate hooks. The peer address is not recorded when
// r.RemoteAddr is not an IP and a port, e.g. for unix sockets.
func NewContext(r *http.Request, o ContextOptions) *filters.Context {
	ext := extensions.New()
	if ap, ok := snet.PeerAddr(r.RemoteAddr); ok {
		addr.Record(ext, ap)
	}

	if o.FlowIDGenerator != nil {
		id, err := flowid.Resolve(r, o.FlowIDGenerator, o.ReuseFlowID)
		if err != nil {
			log.Errorf("Failed to create flow id: %v", err)
		} else {
			flowid.Record(ext, id)
		}
	}

	for _, p := range o.Populate {
		p(r, ext)
	}

	return filters.NewContext(r, ext)
}
