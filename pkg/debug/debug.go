// Package debug implements the bytecode disassembler shared by the
// --debug-print-code / --debug-trace-execution CLI flags and the
// "disassemble" subcommand.
package debug

import (
	"fmt"
	"strings"

	"github.com/kristofer/lox/pkg/bytecode"
	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
)

// DisassembleChunk renders every instruction in chunk, prefixed by name, one
// line per instruction.
func DisassembleChunk(chunk *bytecode.Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		line, next := DisassembleInstruction(chunk, offset)
		b.WriteString(line)
		b.WriteByte('\n')
		offset = next
	}
	return b.String()
}

// DisassembleInstruction renders the single instruction at offset, and
// returns the offset of the instruction that follows it.
func DisassembleInstruction(chunk *bytecode.Chunk, offset int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", chunk.Lines[offset])
	}

	op := bytecode.OpCode(chunk.Code[offset])
	switch op {
	case bytecode.OpConstant:
		return constantInstruction(&b, chunk, op, offset)
	case bytecode.OpGetLocal, bytecode.OpSetLocal,
		bytecode.OpGetUpvalue, bytecode.OpSetUpvalue,
		bytecode.OpCall:
		return byteInstruction(&b, chunk, op, offset)
	case bytecode.OpGetGlobal, bytecode.OpDefineGlobal, bytecode.OpSetGlobal,
		bytecode.OpGetProperty, bytecode.OpSetProperty, bytecode.OpGetSuper,
		bytecode.OpClass, bytecode.OpMethod:
		return constantInstruction(&b, chunk, op, offset)
	case bytecode.OpJump, bytecode.OpJumpIfFalse:
		return jumpInstruction(&b, chunk, op, offset, 1)
	case bytecode.OpLoop:
		return jumpInstruction(&b, chunk, op, offset, -1)
	case bytecode.OpInvoke, bytecode.OpSuperInvoke:
		return invokeInstruction(&b, chunk, op, offset)
	case bytecode.OpClosure:
		return closureInstruction(&b, chunk, offset)
	default:
		b.WriteString(op.String())
		return b.String(), offset + 1
	}
}

func simpleName(op bytecode.OpCode) string { return op.String() }

func constantInstruction(b *strings.Builder, chunk *bytecode.Chunk, op bytecode.OpCode, offset int) (string, int) {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d '%s'", simpleName(op), idx, valueName(chunk.Constants[idx]))
	return b.String(), offset + 2
}

func byteInstruction(b *strings.Builder, chunk *bytecode.Chunk, op bytecode.OpCode, offset int) (string, int) {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d", simpleName(op), slot)
	return b.String(), offset + 2
}

func jumpInstruction(b *strings.Builder, chunk *bytecode.Chunk, op bytecode.OpCode, offset int, sign int) (string, int) {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	fmt.Fprintf(b, "%-16s %4d -> %d", simpleName(op), offset, offset+3+sign*jump)
	return b.String(), offset + 3
}

func invokeInstruction(b *strings.Builder, chunk *bytecode.Chunk, op bytecode.OpCode, offset int) (string, int) {
	nameIdx := chunk.Code[offset+1]
	argCount := chunk.Code[offset+2]
	fmt.Fprintf(b, "%-16s (%d args) %4d '%s'", simpleName(op), argCount, nameIdx, valueName(chunk.Constants[nameIdx]))
	return b.String(), offset + 3
}

func closureInstruction(b *strings.Builder, chunk *bytecode.Chunk, offset int) (string, int) {
	offset++
	constIdx := chunk.Code[offset]
	offset++
	fmt.Fprintf(b, "%-16s %4d '%s'", "OP_CLOSURE", constIdx, valueName(chunk.Constants[constIdx]))

	fn := object.AsFunction(chunk.Constants[constIdx])
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		offset++
		index := chunk.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		fmt.Fprintf(b, "\n%04d      |                     %s %d", offset-2, kind, index)
	}
	return b.String(), offset
}

func valueName(v value.Value) string {
	if v.IsObj() {
		return object.Stringify(v)
	}
	return v.String()
}
