/*
This command provides an executable version of sieve, serving a whoami
endpoint: every accepted request is answered with the address of the
connected peer, the client address, the flow id and the values of the
headers named with the -echo-header flag.

For the list of command line options, run:

    sieve -help

For details about composing filters, please see the documentation of the
root sieve package and the filters package.
*/
package main

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/sieve"
	"github.com/zalando/sieve/config"
	"github.com/zalando/sieve/driver"
	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/addr"
	"github.com/zalando/sieve/filters/flowid"
	"github.com/zalando/sieve/filters/header"
)

func whoami(headers []string) filters.Filter {
	f := []filters.Filter{addr.Remote(), addr.Forwarded(), flowid.Get()}
	for _, h := range headers {
		f = append(f, header.Optional(h))
	}

	return filters.Named("whoami", filters.Chain(f...))
}

func whoamiReply(headers []string) driver.ReplyFunc {
	return func(w http.ResponseWriter, _ *http.Request, t filters.Tuple) {
		remote, _ := filters.Value[netip.AddrPort](t, 0)
		client, _ := filters.Value[netip.Addr](t, 1)
		id, _ := filters.Value[string](t, 2)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "remote: %s\n", driver.FormatValue(remote))
		fmt.Fprintf(w, "client: %s\n", driver.FormatValue(client))
		fmt.Fprintf(w, "flow-id: %s\n", id)
		for i, h := range headers {
			values, _ := filters.Value[[]string](t, i+3)
			fmt.Fprintf(w, "%s: %s\n", http.CanonicalHeaderKey(h), strings.Join(values, ", "))
		}
	}
}

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	o := cfg.ToOptions()
	o.Filter = whoami(cfg.EchoHeaders)
	o.Reply = whoamiReply(cfg.EchoHeaders)

	log.Fatal(sieve.Run(o))
}
