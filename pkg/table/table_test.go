package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
)

func TestSetGetDelete(t *testing.T) {
	tbl := New()
	key := object.NewString("greeting")

	_, ok := tbl.Get(key)
	assert.False(t, ok)

	isNew := tbl.Set(key, value.NumberValue(1))
	assert.True(t, isNew)

	v, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.AsNumber())

	isNew = tbl.Set(key, value.NumberValue(2))
	assert.False(t, isNew, "overwriting an existing key is not a new entry")

	v, ok = tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, 2.0, v.AsNumber())

	assert.True(t, tbl.Delete(key))
	_, ok = tbl.Get(key)
	assert.False(t, ok)
	assert.False(t, tbl.Delete(key), "deleting an absent key reports false")
}

func TestTombstoneKeepsProbeChainIntact(t *testing.T) {
	tbl := New()
	a := object.NewString("a")
	b := object.NewString("b")
	c := object.NewString("c")

	tbl.Set(a, value.NumberValue(1))
	tbl.Set(b, value.NumberValue(2))
	tbl.Set(c, value.NumberValue(3))

	require.True(t, tbl.Delete(b))

	// a and c must still be reachable even though b's slot, possibly on
	// their probe chain, is now a tombstone rather than empty.
	v, ok := tbl.Get(a)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.AsNumber())

	v, ok = tbl.Get(c)
	require.True(t, ok)
	assert.Equal(t, 3.0, v.AsNumber())
}

func TestGrowRehashesSurvivors(t *testing.T) {
	tbl := New()
	keys := make([]*object.String, 0, 64)
	for i := 0; i < 64; i++ {
		k := object.NewString(string(rune('a' + (i % 26))) + string(rune('A'+i%26)) + string(rune(i)))
		keys = append(keys, k)
		tbl.Set(k, value.NumberValue(float64(i)))
	}

	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok, "key %d should survive growth", i)
		assert.Equal(t, float64(i), v.AsNumber())
	}
}

func TestFindString(t *testing.T) {
	tbl := New()
	s := object.NewString("hello")
	tbl.Set(s, value.BoolValue(true))

	found := tbl.FindString("hello", object.HashString("hello"))
	assert.Same(t, s, found)

	assert.Nil(t, tbl.FindString("missing", object.HashString("missing")))
}

func TestAddAllTo(t *testing.T) {
	src := New()
	dst := New()

	methodA := object.NewString("speak")
	src.Set(methodA, value.NumberValue(1))

	src.AddAllTo(dst)

	v, ok := dst.Get(methodA)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.AsNumber())
}

func TestRemoveUnless(t *testing.T) {
	tbl := New()
	keep := object.NewString("keep")
	drop := object.NewString("drop")
	tbl.Set(keep, value.BoolValue(true))
	tbl.Set(drop, value.BoolValue(true))

	tbl.RemoveUnless(func(s *object.String) bool { return s == keep })

	_, ok := tbl.Get(keep)
	assert.True(t, ok)
	_, ok = tbl.Get(drop)
	assert.False(t, ok)
}

func TestEach(t *testing.T) {
	tbl := New()
	tbl.Set(object.NewString("x"), value.NumberValue(1))
	tbl.Set(object.NewString("y"), value.NumberValue(2))

	seen := map[string]float64{}
	tbl.Each(func(k *object.String, v value.Value) {
		seen[k.Chars] = v.AsNumber()
	})

	assert.Equal(t, map[string]float64{"x": 1, "y": 2}, seen)
}
