package gc

import (
	"github.com/dustin/go-humanize"

	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/table"
	"github.com/kristofer/lox/pkg/value"
)

// Collect runs one full mark-and-sweep cycle: mark every root, trace from
// there to a fixed point, sweep the intern table (so strings reachable
// only from it don't get resurrected), then sweep the allocation list,
// and finally recompute the next collection threshold.
func (g *GC) Collect() {
	before := g.bytes
	if g.log != nil {
		g.log.Debugw("gc begin", "bytes", humanize.Bytes(uint64(before)))
	}

	g.markRoots()
	g.traceReferences()
	g.sweepStrings()
	freed := g.sweep()

	g.nextGC = g.bytes * growthFactor
	if g.nextGC < initialNextGC {
		g.nextGC = initialNextGC
	}

	if g.log != nil {
		g.log.Debugw("gc end",
			"before", humanize.Bytes(uint64(before)),
			"after", humanize.Bytes(uint64(g.bytes)),
			"freedObjects", freed,
			"nextGC", humanize.Bytes(uint64(g.nextGC)))
	}
}

func (g *GC) markRoots() {
	for _, r := range g.roots {
		r.MarkRoots(g)
	}
}

// MarkValue marks v if it wraps a heap object. Exported so RootProviders
// (the VM, the compiler chain) can mark their roots without reaching into
// GC internals.
func (g *GC) MarkValue(v value.Value) {
	if v.IsObj() {
		g.MarkObject(v.AsObj())
	}
}

// MarkObject marks o grey (adds it to the worklist) unless it is nil or
// already marked.
func (g *GC) MarkObject(o value.Obj) {
	if o == nil {
		return
	}
	h := o.Header()
	if h.Marked {
		return
	}
	h.Marked = true
	g.grayStack = append(g.grayStack, o)
}

// traceReferences drains the grey worklist, blackening each object by
// marking its children.
func (g *GC) traceReferences() {
	for len(g.grayStack) > 0 {
		n := len(g.grayStack) - 1
		o := g.grayStack[n]
		g.grayStack = g.grayStack[:n]
		g.blacken(o)
	}
}

func (g *GC) blacken(o value.Obj) {
	switch v := o.(type) {
	case *object.String:
		// no children

	case *object.Function:
		if v.Name != nil {
			g.MarkObject(v.Name)
		}
		for _, c := range v.Chunk.Constants {
			g.MarkValue(c)
		}

	case *object.Native:
		// no children

	case *object.Closure:
		g.MarkObject(v.Function)
		for _, uv := range v.Upvalues {
			if uv != nil {
				g.MarkObject(uv)
			}
		}

	case *object.Upvalue:
		g.MarkValue(v.Closed)

	case *object.Class:
		g.MarkObject(v.Name)
		if mt, ok := v.Methods.(*table.Table); ok {
			mt.Each(func(k *object.String, val value.Value) {
				g.MarkObject(k)
				g.MarkValue(val)
			})
		}

	case *object.Instance:
		g.MarkObject(v.Class)
		if ft, ok := v.Fields.(*table.Table); ok {
			ft.Each(func(k *object.String, val value.Value) {
				g.MarkObject(k)
				g.MarkValue(val)
			})
		}

	case *object.BoundMethod:
		g.MarkValue(v.Receiver)
		g.MarkObject(v.Method)
	}
}

// sweepStrings removes intern-table entries whose string object wasn't
// marked during tracing. It must run before sweep() frees the underlying
// objects, and the intern table itself must never be treated as a root —
// otherwise every interned string would be permanently reachable.
func (g *GC) sweepStrings() {
	g.strings.RemoveUnless(func(s *object.String) bool {
		return s.Marked
	})
}

// sweep walks the allocation list, freeing every unmarked object and
// clearing the mark bit on survivors so the next cycle starts clean.
// Returns the number of objects freed.
func (g *GC) sweep() int {
	var freed int
	var prev value.Obj
	cur := g.head

	for cur != nil {
		h := cur.Header()
		if h.Marked {
			h.Marked = false
			prev = cur
			cur = h.Next
			continue
		}

		unreached := cur
		cur = h.Next
		if prev != nil {
			prev.Header().Next = cur
		} else {
			g.head = cur
		}
		g.bytes -= objSize(unreached)
		freed++
	}
	return freed
}

// objSize mirrors the size estimate track() used at allocation time, so
// bytesAllocated stays consistent across a sweep.
func objSize(o value.Obj) int {
	switch v := o.(type) {
	case *object.String:
		return 16 + len(v.Chars)
	case *object.Function:
		return 64
	case *object.Native:
		return 32
	case *object.Closure:
		return 24 + 8*len(v.Upvalues)
	case *object.Upvalue:
		return 32
	case *object.Class:
		return 48
	case *object.Instance:
		return 48
	case *object.BoundMethod:
		return 32
	default:
		return 0
	}
}
