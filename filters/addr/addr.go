/*
Package addr provides filters extracting the address of the client.

The transport records the address of the connected peer with Record
before the filters are evaluated. Remote extracts it:

	f := filters.Map(addr.Remote(), func(t filters.Tuple) filters.Tuple {
		ap, _ := filters.Value[netip.AddrPort](t, 0)
		log.Printf("remote address = %v", ap)
		return nil
	})

When the transport does not use socket addresses, e.g. when listening on
a unix socket, no address is recorded and Remote extracts the zero
netip.AddrPort, whose IsValid method returns false. A missing address is
not a rejection.
*/
package addr

import (
	"net/http"
	"net/netip"

	"github.com/zalando/sieve/extensions"
	"github.com/zalando/sieve/filters"
	snet "github.com/zalando/sieve/net"
)

type remoteAddr struct {
	netip.AddrPort
}

var (
	remote            = filters.Provide(remoteAddrPort)
	forwarded         = filters.Provide(func(c *filters.Context) netip.Addr { return client(c, snet.ForwardedFor) })
	forwardedFromLast = filters.Provide(func(c *filters.Context) netip.Addr { return client(c, snet.ForwardedForLast) })
)

// Record stores the address of the connected peer in the extension store
// of a request. Invalid addresses are not recorded.
func Record(e *extensions.Extensions, ap netip.AddrPort) {
	if !ap.IsValid() {
		return
	}

	extensions.Insert(e, remoteAddr{ap})
}

// From returns the recorded address of the connected peer.
func From(e *extensions.Extensions) (netip.AddrPort, bool) {
	ra, ok := extensions.Get[remoteAddr](e)
	return ra.AddrPort, ok
}

// Remote returns a filter extracting the address of the connected peer,
// as a netip.AddrPort. If the underlying transport doesn't use socket
// addresses, the extracted address is the zero value. The filter never
// fails.
func Remote() filters.Filter { return remote }

// Forwarded returns a filter extracting the address of the client as a
// netip.Addr, taken from the first entry of the X-Forwarded-For header
// when present, otherwise from the address of the connected peer. The
// filter never fails. When neither is available, the extracted address
// is the zero value.
func Forwarded() filters.Filter { return forwarded }

// ForwardedFromLast works like Forwarded, but uses the last entry of the
// X-Forwarded-For header.
func ForwardedFromLast() filters.Filter { return forwardedFromLast }

func remoteAddrPort(c *filters.Context) netip.AddrPort {
	ap, _ := From(c.Extensions())
	return ap
}

func client(c *filters.Context, fromHeader func(http.Header) (netip.Addr, bool)) netip.Addr {
	if r := c.Request(); r != nil {
		if a, ok := fromHeader(r.Header); ok {
			return a
		}
	}

	ap, _ := From(c.Extensions())
	return ap.Addr()
}
