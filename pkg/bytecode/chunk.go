package bytecode

import (
	"fmt"

	"github.com/kristofer/lox/pkg/value"
)

// MaxConstants is the largest number of constants a single Chunk may hold;
// OpConstant and friends address the pool with a single byte.
const MaxConstants = 256

// Chunk is the code and data for one compiled function: a byte-addressable
// instruction stream, a parallel per-byte source line table, and a
// de-duplicated constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int32
	Constants []value.Value

	constIndex map[constKey]int
}

// NewChunk returns an empty Chunk ready for emission.
func NewChunk() *Chunk {
	return &Chunk{constIndex: make(map[constKey]int)}
}

// Write appends one instruction byte, recording the source line it came
// from. Lines always has the same length as Code.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, int32(line))
}

// constKey identifies constant-pool entries eligible for deduplication:
// simple scalar values only, never object constants (those may be distinct
// heap allocations that happen to compare equal, e.g. by identity later).
type constKey struct {
	kind byte
	num  float64
	str  string
}

// AddConstant appends v to the constant pool and returns its index,
// reusing an existing slot for identical Nil/Bool/Number constants.
// Reports an error once the pool would exceed MaxConstants.
func (c *Chunk) AddConstant(v value.Value) (int, error) {
	if key, ok := dedupKey(v); ok {
		if idx, found := c.constIndex[key]; found {
			return idx, nil
		}
		idx := len(c.Constants)
		if idx >= MaxConstants {
			return 0, fmt.Errorf("Too many constants in one chunk.")
		}
		c.Constants = append(c.Constants, v)
		c.constIndex[key] = idx
		return idx, nil
	}

	idx := len(c.Constants)
	if idx >= MaxConstants {
		return 0, fmt.Errorf("Too many constants in one chunk.")
	}
	c.Constants = append(c.Constants, v)
	return idx, nil
}

func dedupKey(v value.Value) (constKey, bool) {
	switch v.Type() {
	case value.Nil:
		return constKey{kind: 'n'}, true
	case value.Bool:
		if v.AsBool() {
			return constKey{kind: 'T'}, true
		}
		return constKey{kind: 'F'}, true
	case value.Number:
		return constKey{kind: 'd', num: v.AsNumber()}, true
	default:
		return constKey{}, false
	}
}
