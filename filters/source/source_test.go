package source

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/addr"
	"github.com/zalando/sieve/filters/filtertest"
)

func TestCreateInvalid(t *testing.T) {
	for _, create := range []func(...string) (filters.Filter, error){Source, SourceFromLast, ClientIP} {
		_, err := create()
		assert.ErrorIs(t, err, errInvalidArgs)

		_, err = create("10.0.0.0/8", "not an address")
		assert.ErrorIs(t, err, errInvalidArgs)
	}
}

func TestSource(t *testing.T) {
	for _, tt := range []struct {
		name    string
		typ     sourceType
		cidrs   []string
		peer    string
		xff     string
		allowed bool
	}{{
		name:    "client ip, allowed",
		typ:     clientIP,
		cidrs:   []string{"192.0.2.0/24"},
		peer:    "192.0.2.1:443",
		allowed: true,
	}, {
		name:  "client ip, not allowed",
		typ:   clientIP,
		cidrs: []string{"10.0.0.0/8"},
		peer:  "192.0.2.1:443",
	}, {
		name:  "client ip, no peer",
		typ:   clientIP,
		cidrs: []string{"0.0.0.0/0"},
	}, {
		name:  "client ip ignores the header",
		typ:   clientIP,
		cidrs: []string{"10.0.0.0/8"},
		peer:  "192.0.2.1:443",
		xff:   "10.0.0.1",
	}, {
		name:    "source, from header",
		typ:     source,
		cidrs:   []string{"10.0.0.0/8"},
		peer:    "192.0.2.1:443",
		xff:     "10.0.0.1, 192.0.2.1",
		allowed: true,
	}, {
		name:    "source, fallback to peer",
		typ:     source,
		cidrs:   []string{"192.0.2.1"},
		peer:    "192.0.2.1:443",
		allowed: true,
	}, {
		name:  "source, header not allowed",
		typ:   source,
		cidrs: []string{"192.0.2.1"},
		peer:  "192.0.2.1:443",
		xff:   "10.0.0.1",
	}, {
		name:    "source from last",
		typ:     sourceFromLast,
		cidrs:   []string{"2001:db8::/32"},
		xff:     "10.0.0.1, 2001:db8::1",
		allowed: true,
	}, {
		name:  "source from last, first entry does not count",
		typ:   sourceFromLast,
		cidrs: []string{"10.0.0.0/8"},
		xff:   "10.0.0.1, 2001:db8::1",
	}} {
		t.Run(tt.name, func(t *testing.T) {
			f, err := create(tt.typ, tt.cidrs)
			require.NoError(t, err)
			assert.False(t, filters.IsInfallible(f))

			var header []string
			if tt.xff != "" {
				header = []string{"X-Forwarded-For", tt.xff}
			}

			c := filtertest.NewContext(header...)
			if tt.peer != "" {
				addr.Record(c.Extensions(), netip.MustParseAddrPort(tt.peer))
			}

			tuple, err := f.Filter(c)
			if tt.allowed {
				require.NoError(t, err)
				assert.Empty(t, tuple)
				return
			}

			assert.ErrorIs(t, err, filters.Forbidden(""))
		})
	}
}

func TestClientIPWithRemote(t *testing.T) {
	allow, err := ClientIP("192.0.2.0/24")
	require.NoError(t, err)

	ap := netip.MustParseAddrPort("192.0.2.1:443")
	c := filtertest.NewContext()
	addr.Record(c.Extensions(), ap)

	tuple, err := filters.And(allow, addr.Remote()).Filter(c)
	require.NoError(t, err)
	assert.Equal(t, filters.Tuple{ap}, tuple)
}
