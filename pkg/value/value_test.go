package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeObj struct {
	hdr ObjHeader
}

func (f *fakeObj) Header() *ObjHeader { return &f.hdr }

func TestValueConstructorsAndPredicates(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		isNil   bool
		isBool  bool
		isNum   bool
		isObj   bool
	}{
		{"nil", NilValue(), true, false, false, false},
		{"bool", BoolValue(true), false, true, false, false},
		{"number", NumberValue(3.5), false, false, true, false},
		{"obj", ObjVal(&fakeObj{}), false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isNil, tt.v.IsNil())
			assert.Equal(t, tt.isBool, tt.v.IsBool())
			assert.Equal(t, tt.isNum, tt.v.IsNumber())
			assert.Equal(t, tt.isObj, tt.v.IsObj())
		})
	}
}

func TestIsFalsy(t *testing.T) {
	assert.True(t, IsFalsy(NilValue()))
	assert.True(t, IsFalsy(BoolValue(false)))
	assert.False(t, IsFalsy(BoolValue(true)))
	assert.False(t, IsFalsy(NumberValue(0)))
	assert.False(t, IsFalsy(ObjVal(&fakeObj{})))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(NilValue(), NilValue()))
	assert.True(t, Equal(NumberValue(1), NumberValue(1)))
	assert.False(t, Equal(NumberValue(1), NumberValue(2)))
	assert.False(t, Equal(NumberValue(1), BoolValue(true)))

	o := &fakeObj{}
	assert.True(t, Equal(ObjVal(o), ObjVal(o)))
	assert.False(t, Equal(ObjVal(o), ObjVal(&fakeObj{})))
}

func TestEqualNaN(t *testing.T) {
	nan := NumberValue(nanValue())
	assert.False(t, Equal(nan, nan), "NaN must not equal itself, matching IEEE 754 float comparison")
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestIsObjType(t *testing.T) {
	o := &fakeObj{hdr: ObjHeader{Type: ObjTypeString}}
	v := ObjVal(o)
	assert.True(t, v.IsObjType(ObjTypeString))
	assert.False(t, v.IsObjType(ObjTypeFunction))
	assert.False(t, NumberValue(1).IsObjType(ObjTypeString))
}

func TestStringFormatting(t *testing.T) {
	assert.Equal(t, "nil", NilValue().String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "false", BoolValue(false).String())
	assert.Equal(t, "3", NumberValue(3).String())
	assert.Equal(t, "3.5", NumberValue(3.5).String())
}
