/*
Package sieve provides composable request filters and a server running
them.

A filter inspects an incoming request and either extracts a tuple of
values from it, or rejects it. Filters are combined with And, Or and Map
into larger filters, see the filters package. The extracted values are
passed to a reply function writing the response.

Facts that only the transport knows, like the address of the connected
peer, are recorded in a type-keyed extension store of the request before
any filter runs, and the built-in extractors, like addr.Remote, read them
from there.

# Quickstart

A minimal server greeting the connected peer:

	f := filters.Named("hello", addr.Remote())

	log.Fatal(sieve.Run(sieve.Options{
		Address: ":9090",
		Filter:  f,
		Reply: func(w http.ResponseWriter, _ *http.Request, t filters.Tuple) {
			ap, _ := filters.Value[netip.AddrPort](t, 0)
			fmt.Fprintf(w, "hello %s\n", ap.Addr())
		},
	}))

# Transport

When running behind a load balancer speaking the PROXY protocol, enable
it with Options.EnableProxyProtocol and list the addresses of the load
balancers in Options.ProxyProtocolAllowList. The peer address recorded for
the filters is then the address of the client.

# Access Control

Options.SourceAllowList limits the accepted requests to peers from the
listed addresses and networks, and Options.RateLimit limits the rate of
the accepted requests, for all the peers together or, with
Options.RateLimitPerClient, for each of them. Both are evaluated before
the configured filter, see the filters/source and filters/ratelimit
packages.

# Support Listener

The support listener serves the Prometheus metrics under /metrics and a
health check under /health. The health check fails once the server
received SIGTERM, for Options.WaitForHealthcheckInterval, before the
server shuts down.

# Command

The cmd/sieve command runs an example server reporting the facts known
about the request, configured with the flags and the optional YAML file of
the config package.
*/
package sieve
