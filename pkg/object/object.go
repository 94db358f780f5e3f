// Package object defines the heap object variants: String, Function,
// Native, Closure, Upvalue, Class, Instance, and BoundMethod. Every variant
// embeds value.ObjHeader as its first field and implements value.Obj via
// Header(), so the collector can sweep a uniform allocation list without
// knowing each variant's shape, and a value.Value wrapping one can be
// type-asserted back to its concrete type with the As* helpers below.
package object

import (
	"github.com/kristofer/lox/pkg/bytecode"
	"github.com/kristofer/lox/pkg/value"
)

// String is an interned, immutable byte string with a precomputed FNV-1a
// hash used both for table lookups and for the intern table itself.
type String struct {
	value.ObjHeader
	Chars string
	Hash  uint32
}

func (s *String) Header() *value.ObjHeader { return &s.ObjHeader }

// HashString computes the 32-bit FNV-1a hash of s, used both to hash table
// keys and to find already-interned strings by content.
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// NewString allocates a fresh, un-interned String header. Callers that
// want interning semantics go through the GC's intern table instead of
// calling this directly.
func NewString(chars string) *String {
	return &String{ObjHeader: value.ObjHeader{Type: value.ObjTypeString}, Chars: chars, Hash: HashString(chars)}
}

func AsString(v value.Value) *String { return v.AsObj().(*String) }

// Function is a compiled function: its arity, how many upvalues its
// closures capture, the Chunk holding its code, and an optional name (nil
// for the implicit top-level script function).
type Function struct {
	value.ObjHeader
	Arity        int
	UpvalueCount int
	Chunk        *bytecode.Chunk
	Name         *String
}

func (f *Function) Header() *value.ObjHeader { return &f.ObjHeader }

func NewFunction() *Function {
	return &Function{ObjHeader: value.ObjHeader{Type: value.ObjTypeFunction}, Chunk: bytecode.NewChunk()}
}

func AsFunction(v value.Value) *Function { return v.AsObj().(*Function) }

// NativeFn is a host function bound into the globals table. It receives
// the call's arguments and returns a value and whether the call
// succeeded; on failure the returned value's string form becomes the
// runtime error message.
type NativeFn func(args []value.Value) (value.Value, bool)

// Native wraps a host function so it can be stored as a Value.
type Native struct {
	value.ObjHeader
	Name string
	Fn   NativeFn
}

func (n *Native) Header() *value.ObjHeader { return &n.ObjHeader }

func NewNative(name string, fn NativeFn) *Native {
	return &Native{ObjHeader: value.ObjHeader{Type: value.ObjTypeNative}, Name: name, Fn: fn}
}

func AsNative(v value.Value) *Native { return v.AsObj().(*Native) }

// Upvalue stands in for a captured local. While Location points into a
// live VM value-stack slot the upvalue is "open"; Close copies that slot's
// value into Closed and redirects Location to point at it, after which the
// upvalue is "closed" and outlives the frame that created it.
type Upvalue struct {
	value.ObjHeader
	Location *value.Value
	Closed   value.Value
	Next     *Upvalue // next-lower-address link in the VM's open-upvalue list
}

func (u *Upvalue) Header() *value.ObjHeader { return &u.ObjHeader }

func NewUpvalue(slot *value.Value) *Upvalue {
	return &Upvalue{ObjHeader: value.ObjHeader{Type: value.ObjTypeUpvalue}, Location: slot}
}

// Close copies the current value out of the stack slot into the upvalue
// itself and repoints Location at that private copy.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

func AsUpvalue(v value.Value) *Upvalue { return v.AsObj().(*Upvalue) }

// Closure pairs a Function with the upvalue environment its closures
// capture from enclosing scopes.
type Closure struct {
	value.ObjHeader
	Function *Function
	Upvalues []*Upvalue
}

func (c *Closure) Header() *value.ObjHeader { return &c.ObjHeader }

func NewClosure(fn *Function) *Closure {
	return &Closure{
		ObjHeader: value.ObjHeader{Type: value.ObjTypeClosure},
		Function:  fn,
		Upvalues:  make([]*Upvalue, fn.UpvalueCount),
	}
}

func AsClosure(v value.Value) *Closure { return v.AsObj().(*Closure) }

// MethodTable is implemented by pkg/table.Table. It is spelled out here as
// an interface so this package (which pkg/table imports, for String and
// Value) doesn't need to import table back.
type MethodTable interface {
	Get(key *String) (value.Value, bool)
	Set(key *String, v value.Value) bool
	Delete(key *String) bool
	AddAllTo(dst MethodTable)
}

// Class holds a name and its own method table; Methods is populated by
// OP_METHOD during class compilation and, for subclasses, pre-seeded by
// OP_INHERIT copying the superclass's table.
type Class struct {
	value.ObjHeader
	Name    *String
	Methods MethodTable
}

func (c *Class) Header() *value.ObjHeader { return &c.ObjHeader }

func NewClass(name *String, methods MethodTable) *Class {
	return &Class{ObjHeader: value.ObjHeader{Type: value.ObjTypeClass}, Name: name, Methods: methods}
}

func AsClass(v value.Value) *Class { return v.AsObj().(*Class) }

// Instance is a live object: a reference to its Class and its own field
// table. Field lookups shadow method lookups of the same name.
type Instance struct {
	value.ObjHeader
	Class  *Class
	Fields MethodTable
}

func (i *Instance) Header() *value.ObjHeader { return &i.ObjHeader }

func NewInstance(class *Class, fields MethodTable) *Instance {
	return &Instance{ObjHeader: value.ObjHeader{Type: value.ObjTypeInstance}, Class: class, Fields: fields}
}

func AsInstance(v value.Value) *Instance { return v.AsObj().(*Instance) }

// BoundMethod pre-binds a Closure to a receiver so it can be called later
// without re-resolving `this`.
type BoundMethod struct {
	value.ObjHeader
	Receiver value.Value
	Method   *Closure
}

func (b *BoundMethod) Header() *value.ObjHeader { return &b.ObjHeader }

func NewBoundMethod(receiver value.Value, method *Closure) *BoundMethod {
	return &BoundMethod{ObjHeader: value.ObjHeader{Type: value.ObjTypeBoundMethod}, Receiver: receiver, Method: method}
}

func AsBoundMethod(v value.Value) *BoundMethod { return v.AsObj().(*BoundMethod) }
