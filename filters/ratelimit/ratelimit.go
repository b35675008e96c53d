/*
Package ratelimit implements filters limiting the rate of the accepted
requests with token buckets.

Service limits all the requests evaluated by the filter with a single
bucket. Client keeps a bucket per client, identified by the address of
the connected peer. Both reject requests exceeding the limit with a
custom rejection of status 429, wrapping ErrLimited. Wait delays the
requests instead of rejecting them, until a token is available or the
request is cancelled.

The filters extract nothing. The buckets are shared by all the requests
evaluated by the same filter value.
*/
package ratelimit

import (
	"errors"
	"net/http"
	"net/netip"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/addr"
)

// DefaultMaxClients is the number of client buckets kept by Client when
// not specified otherwise.
const DefaultMaxClients = 1 << 14

// ErrLimited is wrapped by the rejections of the requests exceeding the
// limit.
var ErrLimited = errors.New("rate limited")

func limited() *filters.Rejection {
	return filters.CustomStatus(http.StatusTooManyRequests, ErrLimited)
}

// Service creates a filter accepting at most r requests per second on
// average, with bursts of up to burst requests.
func Service(r rate.Limit, burst int) filters.Filter {
	l := rate.NewLimiter(r, burst)
	return filters.Func(func(*filters.Context) (filters.Tuple, error) {
		if !l.Allow() {
			return nil, limited()
		}

		return nil, nil
	})
}

// Wait creates a filter delaying the requests to at most r per second,
// with bursts of up to burst requests. When the request is cancelled while
// waiting, the filter fails with the error of the request context. When
// the wait would exceed the deadline of the request, it rejects the
// request immediately.
func Wait(r rate.Limit, burst int) filters.Filter {
	l := rate.NewLimiter(r, burst)
	return filters.Func(func(c *filters.Context) (filters.Tuple, error) {
		ctx := c.Context()
		if err := l.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			return nil, limited()
		}

		return nil, nil
	})
}

type clientLimiter struct {
	mx         sync.Mutex
	rate       rate.Limit
	burst      int
	maxClients int
	buckets    map[netip.Addr]*rate.Limiter
	sometimes  rate.Sometimes
}

// Client creates a filter accepting at most r requests per second on
// average from every client, with bursts of up to burst requests. Clients
// are identified by the address of the connected peer, requests without a
// recorded peer address share a single bucket.
//
// At most maxClients buckets are kept. When a new client arrives and the
// limit is reached, the buckets of the idle clients are dropped. When none
// of them is idle, all the buckets are reset. A maxClients of zero or less
// means DefaultMaxClients.
func Client(r rate.Limit, burst, maxClients int) filters.Filter {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}

	cl := &clientLimiter{
		rate:       r,
		burst:      burst,
		maxClients: maxClients,
		buckets:    make(map[netip.Addr]*rate.Limiter),
		sometimes:  rate.Sometimes{First: 3, Interval: 1 * time.Second},
	}

	return filters.Func(func(c *filters.Context) (filters.Tuple, error) {
		ap, _ := addr.From(c.Extensions())
		if !cl.allow(ap.Addr(), time.Now()) {
			return nil, limited()
		}

		return nil, nil
	})
}

func (cl *clientLimiter) allow(a netip.Addr, now time.Time) bool {
	cl.mx.Lock()
	defer cl.mx.Unlock()

	l, ok := cl.buckets[a]
	if !ok {
		if len(cl.buckets) >= cl.maxClients {
			cl.evict(now)
		}

		l = rate.NewLimiter(cl.rate, cl.burst)
		cl.buckets[a] = l
	}

	return l.AllowN(now, 1)
}

// idle buckets are full, dropping them changes nothing for their clients
func (cl *clientLimiter) evict(now time.Time) {
	for a, l := range cl.buckets {
		if l.TokensAt(now) >= float64(cl.burst) {
			delete(cl.buckets, a)
		}
	}

	if len(cl.buckets) < cl.maxClients {
		return
	}

	cl.sometimes.Do(func() {
		log.Warnf("Rate limit buckets exhausted, resetting %d clients", len(cl.buckets))
	})

	clear(cl.buckets)
}
