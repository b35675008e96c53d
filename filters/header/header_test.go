package header_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/sieve/filters"
	"github.com/zalando/sieve/filters/addr"
	"github.com/zalando/sieve/filters/filtertest"
	"github.com/zalando/sieve/filters/header"
)

func TestValue(t *testing.T) {
	f := header.Value("x-foo")

	tuple, err := f.Filter(filtertest.NewContext("X-Foo", "bar", "X-Foo", "baz"))
	require.NoError(t, err)
	assert.Equal(t, filters.Tuple{"bar"}, tuple)

	tuple, err = f.Filter(filtertest.NewContext("X-Foo", ""))
	require.NoError(t, err)
	assert.Equal(t, filters.Tuple{""}, tuple)

	_, err = f.Filter(filtertest.NewContext())
	assert.ErrorIs(t, err, filters.MissingHeader("X-Foo"))
}

func TestOptional(t *testing.T) {
	f := header.Optional("X-Foo")
	assert.True(t, filters.IsInfallible(f))

	tuple, err := f.Filter(filtertest.NewContext("X-Foo", "bar", "X-Foo", "baz"))
	require.NoError(t, err)
	assert.Equal(t, filters.Tuple{[]string{"bar", "baz"}}, tuple)

	tuple, err = f.Filter(filtertest.NewContext())
	require.NoError(t, err)
	require.Len(t, tuple, 1)
	assert.Nil(t, tuple[0])
}

func TestExact(t *testing.T) {
	f := header.Exact("Accept", "application/json")

	for _, tt := range []struct {
		name   string
		header []string
		err    error
	}{
		{"match", []string{"Accept", "application/json"}, nil},
		{"missing", nil, filters.MissingHeader("Accept")},
		{"different", []string{"Accept", "text/plain"}, filters.InvalidHeader("Accept", nil)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tuple, err := f.Filter(filtertest.NewContext(tt.header...))
			if tt.err == nil {
				require.NoError(t, err)
				assert.Empty(t, tuple)
				return
			}

			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParse(t *testing.T) {
	f := header.Parse("Content-Length", strconv.Atoi)

	tuple, err := f.Filter(filtertest.NewContext("Content-Length", "42"))
	require.NoError(t, err)
	assert.Equal(t, filters.Tuple{42}, tuple)

	_, err = f.Filter(filtertest.NewContext())
	assert.ErrorIs(t, err, filters.MissingHeader("Content-Length"))

	_, err = f.Filter(filtertest.NewContext("Content-Length", "many"))
	assert.ErrorIs(t, err, filters.InvalidHeader("Content-Length", nil))
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}

func TestComposedWithRemote(t *testing.T) {
	f := filters.And(addr.Remote(), filters.Or(header.Value("Authorization"), header.Value("X-Api-Key")))

	c := filtertest.NewContext("X-Api-Key", "secret")
	tuple, err := f.Filter(c)
	require.NoError(t, err)
	require.Len(t, tuple, 2)
	assert.Equal(t, "secret", tuple[1])

	_, err = f.Filter(filtertest.NewContext())
	var r *filters.Rejection
	require.ErrorAs(t, err, &r)
	assert.Equal(t, "Authorization", r.Name())
	assert.ErrorIs(t, err, filters.MissingHeader("X-Api-Key"))
}
