// Package gc implements the allocation trampoline and the tri-colour
// mark-and-sweep collector that cooperates with it. Every heap object the
// compiler or VM creates is constructed here (never via the bare object.New*
// constructors) so its bytes are accounted and it is linked into the single
// allocation list the sweep walks.
package gc

import (
	"go.uber.org/zap"

	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/table"
	"github.com/kristofer/lox/pkg/value"
)

// growthFactor is the multiplier applied to bytesAllocated to compute the
// next collection threshold.
const growthFactor = 2

// initialNextGC is the threshold before the first collection (1 MiB), and
// the floor nextGC never drops below after a collection.
const initialNextGC = 1 << 20

// RootProvider is implemented by anything the collector must treat as a
// root set: the running VM (stack, frames, globals, open upvalues) and the
// compiler (the chain of in-progress function objects, so compile-time
// allocations survive a GC triggered mid-compile).
type RootProvider interface {
	MarkRoots(gc *GC)
}

// GC owns the heap: the allocation list, the byte-accounting trampoline,
// and the string intern table.
type GC struct {
	head  value.Obj
	bytes int
	nextGC int

	strings *table.Table // intern table: key is the canonical string, value unused

	grayStack []value.Obj
	roots     []RootProvider

	stressMode bool
	log        *zap.SugaredLogger
}

// New returns an empty heap. log may be a no-op logger; GC writes only
// debug-level entries, so they appear only when log is configured to emit
// debug output.
func New(log *zap.SugaredLogger) *GC {
	return &GC{
		strings: table.New(),
		nextGC:  initialNextGC,
		log:     log,
	}
}

// SetStressMode forces a collection on every allocation instead of only
// when bytesAllocated exceeds nextGC; used by tests to shake out root-set
// bugs that a lucky threshold would otherwise hide.
func (g *GC) SetStressMode(on bool) { g.stressMode = on }

// AddRoot registers a RootProvider. The VM registers itself once, for its
// lifetime; compiler.Compile registers its Compiler for one compile.
func (g *GC) AddRoot(p RootProvider) { g.roots = append(g.roots, p) }

// RemoveRoot drops a previously-registered RootProvider, used when
// compiler.Compile returns.
func (g *GC) RemoveRoot(p RootProvider) {
	for i, r := range g.roots {
		if r == p {
			g.roots = append(g.roots[:i], g.roots[i+1:]...)
			return
		}
	}
}

// track runs a collection if the object about to be allocated would cross
// nextGC (or always, under stress mode), then links it into the allocation
// list and accounts its size. The collection must happen before o is
// linked in: o isn't rooted yet, so a sweep that ran after linking would
// find it unmarked and free it out from under its own allocation, the same
// hazard clox avoids by checking its threshold inside reallocate before
// the new object is linked into vm.objects.
func (g *GC) track(o value.Obj, size int) {
	if g.stressMode || g.bytes+size > g.nextGC {
		g.Collect()
	}

	o.Header().Next = g.head
	g.head = o
	g.bytes += size
}

// Bytes reports current accounted heap size, for diagnostics.
func (g *GC) Bytes() int { return g.bytes }

// --- typed allocation entry points ---

func (g *GC) NewFunction() *object.Function {
	f := object.NewFunction()
	g.track(f, 64)
	return f
}

func (g *GC) NewNative(name string, fn object.NativeFn) *object.Native {
	n := object.NewNative(name, fn)
	g.track(n, 32)
	return n
}

func (g *GC) NewClosure(fn *object.Function) *object.Closure {
	c := object.NewClosure(fn)
	g.track(c, 24+8*len(c.Upvalues))
	return c
}

func (g *GC) NewUpvalue(slot *value.Value) *object.Upvalue {
	u := object.NewUpvalue(slot)
	g.track(u, 32)
	return u
}

func (g *GC) NewClass(name *object.String) *object.Class {
	c := object.NewClass(name, table.New())
	g.track(c, 48)
	return c
}

func (g *GC) NewInstance(class *object.Class) *object.Instance {
	i := object.NewInstance(class, table.New())
	g.track(i, 48)
	return i
}

func (g *GC) NewBoundMethod(receiver value.Value, method *object.Closure) *object.BoundMethod {
	b := object.NewBoundMethod(receiver, method)
	g.track(b, 32)
	return b
}

// InternString returns the canonical *object.String for chars, allocating
// and interning a new one only if this content hasn't been seen before.
func (g *GC) InternString(chars string) *object.String {
	hash := object.HashString(chars)
	if existing := g.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	s := object.NewString(chars)
	g.track(s, 16+len(chars))
	g.strings.Set(s, value.BoolValue(true))
	return s
}
