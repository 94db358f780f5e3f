package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/lox/pkg/value"
)

func TestChunkWriteTracksLines(t *testing.T) {
	c := NewChunk()
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpPrint), 1)
	c.Write(byte(OpReturn), 2)

	require.Len(t, c.Code, 3)
	require.Len(t, c.Lines, 3)
	assert.Equal(t, []int32{1, 1, 2}, c.Lines)
}

func TestAddConstantDedupesScalars(t *testing.T) {
	c := NewChunk()

	idx1, err := c.AddConstant(value.NumberValue(1))
	require.NoError(t, err)
	idx2, err := c.AddConstant(value.NumberValue(1))
	require.NoError(t, err)
	assert.Equal(t, idx1, idx2, "identical number constants must share a slot")

	idx3, err := c.AddConstant(value.NumberValue(2))
	require.NoError(t, err)
	assert.NotEqual(t, idx1, idx3)

	nilIdx1, err := c.AddConstant(value.NilValue())
	require.NoError(t, err)
	nilIdx2, err := c.AddConstant(value.NilValue())
	require.NoError(t, err)
	assert.Equal(t, nilIdx1, nilIdx2)

	trueIdx, err := c.AddConstant(value.BoolValue(true))
	require.NoError(t, err)
	falseIdx, err := c.AddConstant(value.BoolValue(false))
	require.NoError(t, err)
	assert.NotEqual(t, trueIdx, falseIdx)
}

func TestAddConstantObjectsNeverDedupe(t *testing.T) {
	c := NewChunk()
	a := value.ObjVal(&dummyObj{})
	b := value.ObjVal(&dummyObj{})

	idxA, err := c.AddConstant(a)
	require.NoError(t, err)
	idxB, err := c.AddConstant(b)
	require.NoError(t, err)
	assert.NotEqual(t, idxA, idxB, "distinct heap objects must never share a constant slot")
}

func TestAddConstantEnforcesMax(t *testing.T) {
	c := NewChunk()
	for i := 0; i < MaxConstants; i++ {
		_, err := c.AddConstant(value.NumberValue(float64(i)))
		require.NoError(t, err)
	}

	_, err := c.AddConstant(value.NumberValue(float64(MaxConstants)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Too many constants")
}

type dummyObj struct {
	hdr value.ObjHeader
}

func (d *dummyObj) Header() *value.ObjHeader { return &d.hdr }

func TestOpCodeString(t *testing.T) {
	assert.Equal(t, "OP_RETURN", OpReturn.String())
	assert.Equal(t, "OP_CONSTANT", OpConstant.String())
	assert.Equal(t, "OP_UNKNOWN", OpCode(255).String())
}
