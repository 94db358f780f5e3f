package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/lox/pkg/value"
)

func TestHashStringIsFNV1a32(t *testing.T) {
	// FNV-1a 32-bit offset basis and prime, checked against the empty
	// string and a single byte by hand.
	assert.Equal(t, uint32(2166136261), HashString(""))

	var want uint32 = 2166136261
	want ^= uint32('a')
	want *= 16777619
	assert.Equal(t, want, HashString("a"))
}

func TestNewClosureAllocatesOneUpvalueSlotPerCapture(t *testing.T) {
	fn := NewFunction()
	fn.UpvalueCount = 3

	c := NewClosure(fn)
	assert.Len(t, c.Upvalues, 3)
	for _, uv := range c.Upvalues {
		assert.Nil(t, uv)
	}
}

func TestUpvalueCloseCopiesAndRedirects(t *testing.T) {
	slot := value.NumberValue(42)
	uv := NewUpvalue(&slot)
	assert.Same(t, &slot, uv.Location)

	uv.Close()
	assert.Equal(t, 42.0, uv.Closed.AsNumber())
	assert.Same(t, &uv.Closed, uv.Location)

	// Mutating the original stack slot after Close must not affect the
	// now-closed upvalue: it owns a private copy.
	slot = value.NumberValue(99)
	require.Equal(t, 42.0, uv.Location.AsNumber())
}

func TestAsHelpersRoundTrip(t *testing.T) {
	s := NewString("x")
	assert.Same(t, s, AsString(value.ObjVal(s)))

	fn := NewFunction()
	assert.Same(t, fn, AsFunction(value.ObjVal(fn)))

	native := NewNative("n", func(args []value.Value) (value.Value, bool) { return value.NilValue(), true })
	assert.Same(t, native, AsNative(value.ObjVal(native)))

	closure := NewClosure(fn)
	assert.Same(t, closure, AsClosure(value.ObjVal(closure)))

	class := NewClass(NewString("C"), fakeMethodTable{})
	assert.Same(t, class, AsClass(value.ObjVal(class)))

	inst := NewInstance(class, fakeMethodTable{})
	assert.Same(t, inst, AsInstance(value.ObjVal(inst)))

	bound := NewBoundMethod(value.NilValue(), closure)
	assert.Same(t, bound, AsBoundMethod(value.ObjVal(bound)))
}
