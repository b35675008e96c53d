/*
Package source implements filters accepting requests based on the source
IP of a request.

The filters support one or more IP addresses with or without a netmask,
and reject requests from other sources with KindForbidden. They extract
nothing.

It is important to note, that these filters should not be used as the
only gatekeeper for secure endpoints. Always use proper authorization and
authentication for access control!

There are three flavors. ClientIP uses the address of the connected peer
recorded by the transport. Source and SourceFromLast take the client
address from the first or last entry of the X-Forwarded-For header, to be
used behind load balancers or proxies, and fall back to the address of
the peer.

Examples:

	// only accept requests from 1.2.3.4
	source.ClientIP("1.2.3.4")

	// only accept requests from 1.2.3.0 - 1.2.3.255
	source.Source("1.2.3.0/24")

	// only accept requests from 1.2.3.4 and the 2.2.2.0/24 network
	source.SourceFromLast("1.2.3.4", "2.2.2.0/24")
*/
package source

import (
	"errors"
	"fmt"
	"net/netip"

	"go4.org/netipx"

	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/addr"
	snet "github.com/zalando/sieve/net"
)

var errInvalidArgs = errors.New("invalid arguments")

type sourceType int

const (
	source sourceType = iota
	sourceFromLast
	clientIP
)

// Source creates a filter accepting requests whose client address, taken
// from the first X-Forwarded-For entry, is in one of the cidrs.
func Source(cidrs ...string) (filters.Filter, error) { return create(source, cidrs) }

// SourceFromLast creates a filter accepting requests whose client address,
// taken from the last X-Forwarded-For entry, is in one of the cidrs.
func SourceFromLast(cidrs ...string) (filters.Filter, error) { return create(sourceFromLast, cidrs) }

// ClientIP creates a filter accepting requests whose connected peer
// address is in one of the cidrs. Requests without a recorded peer
// address are rejected.
func ClientIP(cidrs ...string) (filters.Filter, error) { return create(clientIP, cidrs) }

func create(typ sourceType, cidrs []string) (filters.Filter, error) {
	if len(cidrs) == 0 {
		return nil, errInvalidArgs
	}

	nets, err := snet.ParseIPCIDRs(cidrs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidArgs, err)
	}

	var from filters.Filter
	switch typ {
	case sourceFromLast:
		from = addr.ForwardedFromLast()
	case clientIP:
		from = filters.Map(addr.Remote(), func(t filters.Tuple) filters.Tuple {
			ap, _ := filters.Value[netip.AddrPort](t, 0)
			return filters.Tuple{ap.Addr()}
		})
	default:
		from = addr.Forwarded()
	}

	return filters.AndThen(from, func(_ *filters.Context, t filters.Tuple) (filters.Tuple, error) {
		return nil, check(nets, t)
	}), nil
}

func check(nets *netipx.IPSet, t filters.Tuple) error {
	src, _ := filters.Value[netip.Addr](t, 0)
	if !src.IsValid() {
		return filters.Forbidden("unknown source")
	}

	if !nets.Contains(src.Unmap()) {
		return filters.Forbidden(fmt.Sprintf("source %s not allowed", src))
	}

	return nil
}
