// Package bytecode defines the instruction set and the Chunk container that
// the compiler emits into and the VM decodes from.
package bytecode

// OpCode is a single-byte instruction tag. Operands, when present, are
// encoded inline as one or two bytes immediately following the opcode —
// see the per-opcode comments below for exact layout.
type OpCode byte

const (
	// OpConstant pushes constants[idx] (1-byte idx).
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop

	// OpGetLocal/OpSetLocal take a 1-byte frame-relative slot.
	OpGetLocal
	OpSetLocal

	// OpGetGlobal/OpDefineGlobal/OpSetGlobal take a 1-byte constant index
	// naming the global.
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal

	// OpGetUpvalue/OpSetUpvalue take a 1-byte upvalue index.
	OpGetUpvalue
	OpSetUpvalue

	// OpGetProperty/OpSetProperty take a 1-byte constant index naming the
	// property.
	OpGetProperty
	OpSetProperty

	// OpGetSuper takes a 1-byte constant index naming the method.
	OpGetSuper

	OpEqual
	OpGreater
	OpLess

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide

	OpNot
	OpNegate

	OpPrint

	// OpJump/OpJumpIfFalse take a 2-byte big-endian forward offset.
	OpJump
	OpJumpIfFalse
	// OpLoop takes a 2-byte big-endian backward offset.
	OpLoop

	// OpCall takes a 1-byte argument count.
	OpCall

	// OpInvoke/OpSuperInvoke take a 1-byte constant index (method name)
	// followed by a 1-byte argument count.
	OpInvoke
	OpSuperInvoke

	// OpClosure takes a 1-byte constant index of the ObjFunction, followed
	// by one (isLocal byte, index byte) pair per upvalue the function
	// captures.
	OpClosure
	OpCloseUpvalue

	OpReturn

	OpClass
	OpInherit
	OpMethod
)

// String names an opcode for the disassembler.
func (op OpCode) String() string {
	switch op {
	case OpConstant:
		return "OP_CONSTANT"
	case OpNil:
		return "OP_NIL"
	case OpTrue:
		return "OP_TRUE"
	case OpFalse:
		return "OP_FALSE"
	case OpPop:
		return "OP_POP"
	case OpGetLocal:
		return "OP_GET_LOCAL"
	case OpSetLocal:
		return "OP_SET_LOCAL"
	case OpGetGlobal:
		return "OP_GET_GLOBAL"
	case OpDefineGlobal:
		return "OP_DEFINE_GLOBAL"
	case OpSetGlobal:
		return "OP_SET_GLOBAL"
	case OpGetUpvalue:
		return "OP_GET_UPVALUE"
	case OpSetUpvalue:
		return "OP_SET_UPVALUE"
	case OpGetProperty:
		return "OP_GET_PROPERTY"
	case OpSetProperty:
		return "OP_SET_PROPERTY"
	case OpGetSuper:
		return "OP_GET_SUPER"
	case OpEqual:
		return "OP_EQUAL"
	case OpGreater:
		return "OP_GREATER"
	case OpLess:
		return "OP_LESS"
	case OpAdd:
		return "OP_ADD"
	case OpSubtract:
		return "OP_SUBTRACT"
	case OpMultiply:
		return "OP_MULTIPLY"
	case OpDivide:
		return "OP_DIVIDE"
	case OpNot:
		return "OP_NOT"
	case OpNegate:
		return "OP_NEGATE"
	case OpPrint:
		return "OP_PRINT"
	case OpJump:
		return "OP_JUMP"
	case OpJumpIfFalse:
		return "OP_JUMP_IF_FALSE"
	case OpLoop:
		return "OP_LOOP"
	case OpCall:
		return "OP_CALL"
	case OpInvoke:
		return "OP_INVOKE"
	case OpSuperInvoke:
		return "OP_SUPER_INVOKE"
	case OpClosure:
		return "OP_CLOSURE"
	case OpCloseUpvalue:
		return "OP_CLOSE_UPVALUE"
	case OpReturn:
		return "OP_RETURN"
	case OpClass:
		return "OP_CLASS"
	case OpInherit:
		return "OP_INHERIT"
	case OpMethod:
		return "OP_METHOD"
	default:
		return "OP_UNKNOWN"
	}
}
