/*
Package proxylistener implements a listener accepting connections that
start with a PROXY protocol header, as sent by load balancers like AWS
NLB or HAProxy.

With the listener, http.Request.RemoteAddr holds the address of the
client as reported by the load balancer, and so does the peer address
recorded for the filters.

Upstream connections are policed by the address of the load balancer:
connections from the deny list are rejected when they send a header,
connections from the skip list are used without reading a header, and
connections from the allow list must use a header to pass the client
address. Connections from other addresses are rejected when they send a
header.
*/
package proxylistener

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/pires/go-proxyproto"
	log "github.com/sirupsen/logrus"

	snet "github.com/zalando/sieve/net"
)

const (
	defaultReadHeaderTimeout = time.Second // 10s seems too long https://github.com/pires/go-proxyproto/blob/5c8010d2392f09ce18169631c024aceae758335a/protocol.go#L28
	defaultReadBufferSize    = 256         // https://github.com/pires/go-proxyproto/blob/5c8010d2392f09ce18169631c024aceae758335a/protocol.go#L21
)

var (
	errMissingListener = errors.New("proxylistener: missing listener")
	errNilHeader       = errors.New("proxylistener: header is nil")
)

// Options configure the PROXY protocol listener.
type Options struct {

	// Listener accepting the upstream connections. Required.
	Listener net.Listener

	// ReadHeaderTimeout limits the time to wait for the header, 1s
	// when not set.
	ReadHeaderTimeout time.Duration

	// ReadBufferSize of the header reader, 256 bytes when not set.
	ReadBufferSize int

	// SkipListCIDRs are the upstream networks whose connections are
	// used without reading a PROXY header.
	SkipListCIDRs []string

	// AllowListCIDRs are the upstream networks allowed to pass the
	// client address in a PROXY header.
	AllowListCIDRs []string

	// DenyListCIDRs are the upstream networks whose connections are
	// rejected when sending a PROXY header. The deny list takes
	// precedence over the other lists.
	DenyListCIDRs []string
}

// NewListener wraps opt.Listener with the PROXY protocol.
func NewListener(opt Options) (net.Listener, error) {
	if opt.Listener == nil {
		return nil, errMissingListener
	}

	if opt.ReadHeaderTimeout == 0 {
		opt.ReadHeaderTimeout = defaultReadHeaderTimeout
	}

	if opt.ReadBufferSize == 0 {
		opt.ReadBufferSize = defaultReadBufferSize
	}

	skipSet, err := snet.ParseIPCIDRs(opt.SkipListCIDRs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse skip list: %w", err)
	}

	allowSet, err := snet.ParseIPCIDRs(opt.AllowListCIDRs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse allow list: %w", err)
	}

	denySet, err := snet.ParseIPCIDRs(opt.DenyListCIDRs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deny list: %w", err)
	}

	policy := func(cpo proxyproto.ConnPolicyOptions) (proxyproto.Policy, error) {
		ap, err := netip.ParseAddrPort(cpo.Upstream.String())
		if err != nil {
			log.Debugf("proxylistener: rejecting header from upstream %s: %v", cpo.Upstream, err)
			return proxyproto.REJECT, nil
		}

		addr := ap.Addr().Unmap()
		switch {
		case denySet.Contains(addr):
			return proxyproto.REJECT, nil
		case skipSet.Contains(addr):
			return proxyproto.SKIP, nil
		case allowSet.Contains(addr):
			return proxyproto.USE, nil
		default:
			return proxyproto.REJECT, nil
		}
	}

	return &proxyproto.Listener{
		Listener:          opt.Listener,
		ReadHeaderTimeout: opt.ReadHeaderTimeout,
		ReadBufferSize:    opt.ReadBufferSize,
		ConnPolicy:        policy,
		ValidateHeader:    validateHeader,
	}, nil
}

func validateHeader(h *proxyproto.Header) error {
	if h == nil {
		return errNilHeader
	}

	if h.SourceAddr == nil || h.DestinationAddr == nil {
		return fmt.Errorf("proxylistener: header missing addresses src: %q, dst: %q", h.SourceAddr, h.DestinationAddr)
	}

	if h.TransportProtocol != proxyproto.TCPv4 && h.TransportProtocol != proxyproto.TCPv6 {
		return fmt.Errorf("proxylistener: unsupported protocol %v", h.TransportProtocol)
	}

	return nil
}
