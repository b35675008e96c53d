package net

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// strip port from addresses with hostname, ipv4 or ipv6
func stripPort(address string) string {
	if h, _, err := net.SplitHostPort(address); err == nil {
		return h
	}

	return address
}

// PeerAddr parses the address of the connected peer as found in
// http.Request.RemoteAddr. It fails for addresses that are not an IP and
// a port, e.g. for unix sockets. IPv4-mapped IPv6 addresses are unmapped.
func PeerAddr(remoteAddr string) (netip.AddrPort, bool) {
	ap, err := netip.ParseAddrPort(remoteAddr)
	if err != nil {
		return netip.AddrPort{}, false
	}

	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), true
}

// ForwardedFor returns the client address from the first entry of the
// 'X-Forwarded-For' header. This is how most often proxies behave.
// Wikipedia shows the format
// https://en.wikipedia.org/wiki/X-Forwarded-For#Format
//
// Example:
//
//	X-Forwarded-For: client, proxy1, proxy2
func ForwardedFor(h http.Header) (netip.Addr, bool) {
	xff := h.Get("X-Forwarded-For")
	if xff == "" {
		return netip.Addr{}, false
	}

	s, _, _ := strings.Cut(xff, ",")
	addr, err := netip.ParseAddr(stripPort(strings.TrimSpace(s)))
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}

// ForwardedForLast returns the client address from the last entry of the
// 'X-Forwarded-For' header. This is known to be true for AWS Application
// LoadBalancer. AWS docs
// https://docs.aws.amazon.com/elasticloadbalancing/latest/classic/x-forwarded-headers.html
//
// Example:
//
//	X-Forwarded-For: ip-address-1, ip-address-2, client-ip-address
func ForwardedForLast(h http.Header) (netip.Addr, bool) {
	xff := h.Get("X-Forwarded-For")
	if xff == "" {
		return netip.Addr{}, false
	}

	last := xff
	if i := strings.LastIndex(xff, ","); i != -1 {
		last = xff[i+1:]
	}

	addr, err := netip.ParseAddr(stripPort(strings.TrimSpace(last)))
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}

// RemoteAddr returns the remote address of the client. When the
// 'X-Forwarded-For' header is set, then its first entry is used instead.
func RemoteAddr(r *http.Request) netip.Addr {
	if addr, ok := ForwardedFor(r.Header); ok {
		return addr
	}

	addr, _ := netip.ParseAddr(stripPort(r.RemoteAddr))
	return addr.Unmap()
}

// RemoteAddrFromLast returns the remote address of the client. When the
// 'X-Forwarded-For' header is set, then its last entry is used instead.
func RemoteAddrFromLast(r *http.Request) netip.Addr {
	if addr, ok := ForwardedForLast(r.Header); ok {
		return addr
	}

	addr, _ := netip.ParseAddr(stripPort(r.RemoteAddr))
	return addr.Unmap()
}

// ParseIPCIDRs returns a valid IPSet even in case there are parsing
// errors of some partial provided input cidrs. So recently added
// bogus values can be logged and ignored at runtime.
func ParseIPCIDRs(cidrs []string) (*netipx.IPSet, error) {
	var (
		b   netipx.IPSetBuilder
		err error
	)

	for _, w := range cidrs {
		w = strings.TrimSpace(w)
		if strings.Contains(w, "/") {
			if pref, e := netip.ParsePrefix(w); e != nil {
				err = e
			} else {
				b.AddPrefix(pref.Masked())
			}
		} else if addr, e := netip.ParseAddr(w); e != nil {
			err = e
		} else {
			b.Add(addr.Unmap())
		}
	}

	ips, e := b.IPSet()
	if e != nil {
		return ips, e
	}

	return ips, err
}
