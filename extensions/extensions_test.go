package extensions_test

import (
	"errors"
	"fmt"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/sieve/extensions"
)

type (
	first  int
	second int
)

type peer struct{ netip.AddrPort }

func TestGetMissing(t *testing.T) {
	ext := extensions.New()

	v, ok := extensions.Get[peer](ext)
	assert.False(t, ok)
	assert.Equal(t, peer{}, v)
	assert.False(t, extensions.Has[peer](ext))
}

func TestNilStore(t *testing.T) {
	var ext *extensions.Extensions

	_, ok := extensions.Get[string](ext)
	assert.False(t, ok)
	assert.False(t, extensions.Has[string](ext))
	assert.Equal(t, 0, ext.Len())
	assert.Equal(t, 0, ext.Clone().Len())

	extensions.Insert(ext, "foo")
	assert.False(t, extensions.Has[string](ext))

	_, ok = extensions.Remove[string](ext)
	assert.False(t, ok)
}

func TestZeroValueStore(t *testing.T) {
	var ext extensions.Extensions
	extensions.Insert(&ext, "foo")

	v, ok := extensions.Get[string](&ext)
	require.True(t, ok)
	assert.Equal(t, "foo", v)
}

func TestInsertGet(t *testing.T) {
	ext := extensions.New()
	ap := netip.MustParseAddrPort("192.0.2.1:443")
	extensions.Insert(ext, peer{ap})

	v, ok := extensions.Get[peer](ext)
	require.True(t, ok)
	assert.Equal(t, ap, v.AddrPort)
}

func TestInsertOverwrites(t *testing.T) {
	ext := extensions.New()
	extensions.Insert(ext, "old")
	extensions.Insert(ext, "new")

	v, ok := extensions.Get[string](ext)
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, ext.Len())
}

func TestDistinctDeclaredTypes(t *testing.T) {
	ext := extensions.New()
	extensions.Insert(ext, first(1))
	extensions.Insert(ext, second(2))
	extensions.Insert(ext, 3)

	f, ok := extensions.Get[first](ext)
	require.True(t, ok)
	assert.Equal(t, first(1), f)

	s, ok := extensions.Get[second](ext)
	require.True(t, ok)
	assert.Equal(t, second(2), s)

	i, ok := extensions.Get[int](ext)
	require.True(t, ok)
	assert.Equal(t, 3, i)

	assert.Equal(t, 3, ext.Len())
}

func TestInsertionOrderIrrelevant(t *testing.T) {
	a := extensions.New()
	extensions.Insert(a, first(1))
	extensions.Insert(a, "x")

	b := extensions.New()
	extensions.Insert(b, "x")
	extensions.Insert(b, first(1))

	fa, _ := extensions.Get[first](a)
	fb, _ := extensions.Get[first](b)
	assert.Equal(t, fa, fb)

	sa, _ := extensions.Get[string](a)
	sb, _ := extensions.Get[string](b)
	assert.Equal(t, sa, sb)
}

func TestInterfaceKey(t *testing.T) {
	ext := extensions.New()
	err := errors.New("foo")
	extensions.Insert[error](ext, err)

	_, ok := extensions.Get[fmt.Stringer](ext)
	assert.False(t, ok)

	got, ok := extensions.Get[error](ext)
	require.True(t, ok)
	assert.Same(t, err, got)

	extensions.Insert[error](ext, nil)
	got, ok = extensions.Get[error](ext)
	assert.True(t, ok)
	assert.NoError(t, got)
}

func TestRemove(t *testing.T) {
	ext := extensions.New()
	extensions.Insert(ext, first(42))

	v, ok := extensions.Remove[first](ext)
	require.True(t, ok)
	assert.Equal(t, first(42), v)
	assert.False(t, extensions.Has[first](ext))

	_, ok = extensions.Remove[first](ext)
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	ext := extensions.New()
	extensions.Insert(ext, first(1))

	c := ext.Clone()
	extensions.Insert(c, first(2))
	extensions.Insert(c, "only in clone")

	v, _ := extensions.Get[first](ext)
	assert.Equal(t, first(1), v)
	assert.False(t, extensions.Has[string](ext))
	assert.Equal(t, 2, c.Len())
}

func ExampleGet() {
	type requestID string

	ext := extensions.New()
	extensions.Insert(ext, requestID("abc"))

	id, ok := extensions.Get[requestID](ext)
	fmt.Println(id, ok)

	_, ok = extensions.Get[string](ext)
	fmt.Println(ok)

	// Output:
	// abc true
	// false
}
