package gc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
)

// fakeRoots lets a test pin an arbitrary set of values as GC roots without
// standing up a real compiler or VM.
type fakeRoots struct {
	values []value.Value
}

func (f *fakeRoots) MarkRoots(g *GC) {
	for _, v := range f.values {
		g.MarkValue(v)
	}
}

func newTestGC() *GC {
	return New(zap.NewNop().Sugar())
}

func TestInternStringReturnsCanonicalPointer(t *testing.T) {
	g := newTestGC()
	a := g.InternString("hello")
	b := g.InternString("hello")
	assert.Same(t, a, b, "identical content must intern to the same object")

	c := g.InternString("world")
	assert.NotSame(t, a, c)
}

func TestCollectFreesUnreachableStrings(t *testing.T) {
	g := newTestGC()
	reachable := g.InternString("kept")
	g.InternString("dropped")

	roots := &fakeRoots{values: []value.Value{value.ObjVal(reachable)}}
	g.AddRoot(roots)

	before := g.Bytes()
	g.Collect()
	assert.Less(t, g.Bytes(), before, "unreachable string should be swept")

	// The reachable string is still findable by content afterward.
	again := g.InternString("kept")
	assert.Same(t, reachable, again)
}

func TestCollectPreservesReachableObjectGraph(t *testing.T) {
	g := newTestGC()

	fn := g.NewFunction()
	fn.Name = g.InternString("outer")
	closure := g.NewClosure(fn)

	roots := &fakeRoots{values: []value.Value{value.ObjVal(closure)}}
	g.AddRoot(roots)

	g.Collect()

	assert.Same(t, fn, closure.Function, "closure's function must survive a collection it's reachable through")
	assert.False(t, closure.Header().Marked, "sweep must clear the mark bit on survivors")
}

func TestRemoveRootStopsMarking(t *testing.T) {
	g := newTestGC()
	s := g.InternString("temporary")
	roots := &fakeRoots{values: []value.Value{value.ObjVal(s)}}

	g.AddRoot(roots)
	g.RemoveRoot(roots)

	before := g.Bytes()
	g.Collect()
	assert.Less(t, g.Bytes(), before, "removed root's referent should no longer be protected")
}

func TestClassInheritsSuperclassMethodsViaAddAllTo(t *testing.T) {
	g := newTestGC()
	base := g.NewClass(g.InternString("Animal"))
	base.Methods.Set(g.InternString("speak"), value.NumberValue(1))

	sub := g.NewClass(g.InternString("Dog"))
	base.Methods.AddAllTo(sub.Methods)

	_, ok := sub.Methods.Get(g.InternString("speak"))
	assert.True(t, ok)
}

func TestEncodeDecodeFunctionRoundTrips(t *testing.T) {
	g := newTestGC()
	fn := g.NewFunction()
	fn.Arity = 2
	fn.Name = g.InternString("add")
	fn.Chunk.Write(1, 10)
	fn.Chunk.Write(2, 10)
	idx, err := fn.Chunk.AddConstant(value.NumberValue(7))
	require.NoError(t, err)
	_ = idx

	inner := g.NewFunction()
	inner.Arity = 0
	inner.Name = g.InternString("helper")
	_, err = fn.Chunk.AddConstant(value.ObjVal(inner))
	require.NoError(t, err)
	_, err = fn.Chunk.AddConstant(value.ObjVal(g.InternString("a string constant")))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeFunction(fn, &buf))

	g2 := newTestGC()
	decoded, err := g2.DecodeFunction(&buf)
	require.NoError(t, err)

	assert.Equal(t, fn.Arity, decoded.Arity)
	assert.Equal(t, fn.Name.Chars, decoded.Name.Chars)
	assert.Equal(t, fn.Chunk.Code, decoded.Chunk.Code)
	assert.Equal(t, fn.Chunk.Lines, decoded.Chunk.Lines)
	require.Len(t, decoded.Chunk.Constants, len(fn.Chunk.Constants))

	assert.Equal(t, 7.0, decoded.Chunk.Constants[0].AsNumber())

	nestedFn := object.AsFunction(decoded.Chunk.Constants[1])
	assert.Equal(t, "helper", nestedFn.Name.Chars)

	nestedStr := object.AsString(decoded.Chunk.Constants[2])
	assert.Equal(t, "a string constant", nestedStr.Chars)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	g := newTestGC()
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 1, 0, 0, 0})
	_, err := g.DecodeFunction(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a .loxc file")
}
