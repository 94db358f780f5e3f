// Package value defines the dynamically tagged Value representation shared
// by the compiler and the VM, plus the common header every heap object
// embeds.
package value

import "fmt"

// Type tags the dynamic variant a Value currently holds.
type Type int

const (
	Nil Type = iota
	Bool
	Number
	Obj
)

// Value is a tagged union over Nil, Bool, Number, and Obj (a heap object
// pointer). It is copied by value everywhere; only the Obj variant carries
// a pointer into the heap.
type Value struct {
	typ    Type
	b      bool
	n      float64
	object Obj
}

// Obj is implemented by every heap object variant (String, Function,
// Native, Closure, Upvalue, Class, Instance, BoundMethod — all defined in
// package object, which embeds ObjHeader and implements Header()). Values
// and the GC only ever see objects through this interface, which is why
// object identity — the rule strings-as-pointers equality relies on — is
// just Go interface/pointer equality.
type Obj interface {
	Header() *ObjHeader
}

// ObjHeader is the header every heap object variant embeds: a type tag for
// the sweep to dispatch on, a mark bit the collector flips during tracing,
// and a Next link threading the object into the VM's single allocation
// list.
type ObjHeader struct {
	Type   ObjType
	Marked bool
	Next   Obj
}

// ObjType distinguishes the heap object variants.
type ObjType int

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
)

func NilValue() Value             { return Value{typ: Nil} }
func BoolValue(b bool) Value      { return Value{typ: Bool, b: b} }
func NumberValue(n float64) Value { return Value{typ: Number, n: n} }
func ObjVal(o Obj) Value          { return Value{typ: Obj, object: o} }

func (v Value) Type() Type      { return v.typ }
func (v Value) IsNil() bool     { return v.typ == Nil }
func (v Value) IsBool() bool    { return v.typ == Bool }
func (v Value) IsNumber() bool  { return v.typ == Number }
func (v Value) IsObj() bool     { return v.typ == Obj }

// AsBool returns the boolean payload. Callers must check IsBool first;
// like clox's AS_BOOL macro this does not itself validate the tag.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the float64 payload.
func (v Value) AsNumber() float64 { return v.n }

// AsObj returns the heap object interface value.
func (v Value) AsObj() Obj { return v.object }

// IsObjType reports whether v is an Obj of the given variant.
func (v Value) IsObjType(t ObjType) bool {
	return v.typ == Obj && v.object.Header().Type == t
}

// IsFalsy implements lox truthiness: nil and false are falsy, everything
// else (including 0 and "") is truthy.
func IsFalsy(v Value) bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// Equal implements values_equal. Object equality is by identity — strings
// are interned so byte-equal strings are pointer-equal, making this
// correct for strings too.
func Equal(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case Nil:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.n == b.n // NaN != NaN falls out of this naturally
	case Obj:
		return a.object == b.object
	default:
		return false
	}
}

// String renders v the way the VM's print statement and to_string native
// do, except that object variants with children (functions, closures,
// classes...) are stringified by package object, which knows their shapes;
// this covers only the tags defined here.
func (v Value) String() string {
	switch v.typ {
	case Nil:
		return "nil"
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Number:
		return formatNumber(v.n)
	case Obj:
		return fmt.Sprintf("<obj %d>", v.object.Header().Type)
	default:
		return "<invalid value>"
	}
}

// formatNumber matches the to_string native's contract: integral values
// print without a fractional part, everything else uses %g.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%.0f", n)
	}
	return fmt.Sprintf("%g", n)
}
