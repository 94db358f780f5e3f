package object

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kristofer/lox/pkg/value"
)

func TestStringifyScalars(t *testing.T) {
	assert.Equal(t, "nil", Stringify(value.NilValue()))
	assert.Equal(t, "true", Stringify(value.BoolValue(true)))
	assert.Equal(t, "3", Stringify(value.NumberValue(3)))
}

func TestStringifyString(t *testing.T) {
	s := NewString("hi")
	assert.Equal(t, "hi", Stringify(value.ObjVal(s)))
}

func TestStringifyFunction(t *testing.T) {
	anon := NewFunction()
	assert.Equal(t, "<script>", Stringify(value.ObjVal(anon)))

	named := NewFunction()
	named.Name = NewString("add")
	assert.Equal(t, "<fn add>", Stringify(value.ObjVal(named)))
}

func TestStringifyNative(t *testing.T) {
	n := NewNative("clock", func(args []value.Value) (value.Value, bool) {
		return value.NilValue(), true
	})
	assert.Equal(t, "<native fn>", Stringify(value.ObjVal(n)))
}

func TestStringifyClosureDelegatesToFunction(t *testing.T) {
	fn := NewFunction()
	fn.Name = NewString("greet")
	c := NewClosure(fn)
	assert.Equal(t, "<fn greet>", Stringify(value.ObjVal(c)))
}

func TestStringifyClassAndInstance(t *testing.T) {
	class := NewClass(NewString("Point"), fakeMethodTable{})
	assert.Equal(t, "Point", Stringify(value.ObjVal(class)))

	inst := NewInstance(class, fakeMethodTable{})
	assert.Equal(t, "Point instance", Stringify(value.ObjVal(inst)))
}

func TestStringifyBoundMethodDelegatesToUnderlyingFunction(t *testing.T) {
	fn := NewFunction()
	fn.Name = NewString("speak")
	closure := NewClosure(fn)
	bound := NewBoundMethod(value.NilValue(), closure)
	assert.Equal(t, "<fn speak>", Stringify(value.ObjVal(bound)))
}

type fakeMethodTable struct{}

func (fakeMethodTable) Get(key *String) (value.Value, bool) { return value.NilValue(), false }
func (fakeMethodTable) Set(key *String, v value.Value) bool { return true }
func (fakeMethodTable) Delete(key *String) bool              { return false }
func (fakeMethodTable) AddAllTo(dst MethodTable)              {}
