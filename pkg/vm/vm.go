// Package vm implements the stack-based bytecode interpreter: the call
// frame stack, the value stack, globals, open upvalues, and the dispatch
// loop that decodes pkg/bytecode instructions compiled by pkg/compiler.
package vm

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/kristofer/lox/pkg/bytecode"
	"github.com/kristofer/lox/pkg/compiler"
	"github.com/kristofer/lox/pkg/debug"
	"github.com/kristofer/lox/pkg/gc"
	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/table"
	"github.com/kristofer/lox/pkg/value"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// InterpretResult is the top-level outcome Interpret reports, matching the
// exit-code categories the CLI translates to process exit status.
type InterpretResult int

const (
	InterpretOk InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// CallFrame is one active call's window onto the value stack: which
// closure is running, where its bytecode cursor is, and the stack index
// its locals are based at (slot 0 is `this` for methods, the closure
// itself otherwise).
type CallFrame struct {
	closure *object.Closure
	ip      int
	slots   int
}

// VM owns one interpreter run's mutable state: the fixed-size frame and
// value stacks (never reallocated, so open upvalues can hold raw pointers
// into the stack array for the lifetime of the VM), globals, the
// open-upvalue list, and the heap the compiler and this VM share.
type VM struct {
	frames     [framesMax]CallFrame
	frameCount int

	stack    [stackMax]value.Value
	stackTop int

	globals      *table.Table
	openUpvalues *object.Upvalue

	gc  *gc.GC
	log *zap.SugaredLogger

	traceExecution bool
	lastErr        *RuntimeError
}

// New returns a VM with its native functions bound into globals and
// registers it as a GC root for the lifetime of the returned value.
func New(g *gc.GC, log *zap.SugaredLogger) *VM {
	vm := &VM{gc: g, globals: table.New(), log: log}
	g.AddRoot(vm)
	vm.defineNatives()
	return vm
}

// SetTraceExecution turns on per-instruction disassembly logging, the
// equivalent of clox's DEBUG_TRACE_EXECUTION build flag.
func (vm *VM) SetTraceExecution(on bool) { vm.traceExecution = on }

// MarkRoots implements gc.RootProvider: the value stack, every active
// frame's closure, the open-upvalue chain, and the globals table are all
// roots that must survive a collection triggered mid-run.
func (vm *VM) MarkRoots(g *gc.GC) {
	for i := 0; i < vm.stackTop; i++ {
		g.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		g.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		g.MarkObject(uv)
	}
	vm.globals.Each(func(k *object.String, v value.Value) {
		g.MarkObject(k)
		g.MarkValue(v)
	})
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// Interpret compiles source and, if that succeeds, runs it to completion.
func (vm *VM) Interpret(source string) (InterpretResult, error) {
	fn, err := compiler.Compile(vm.gc, source)
	if err != nil {
		return InterpretCompileError, err
	}
	return vm.InterpretFunction(fn)
}

// InterpretFunction runs an already-compiled top-level function to
// completion, skipping the lexer and compiler entirely. This is how a
// loaded .loxc file is executed.
func (vm *VM) InterpretFunction(fn *object.Function) (InterpretResult, error) {
	vm.resetStack()
	closure := vm.gc.NewClosure(fn)
	vm.push(value.ObjVal(closure))
	vm.call(closure, 0)

	return vm.run()
}

// LastError returns the RuntimeError from the most recent failing run, or
// nil. Interpret's returned error already carries this, so callers
// ordinarily don't need it; it exists for tests that want the structured
// stack trace.
func (vm *VM) LastError() *RuntimeError { return vm.lastErr }

func (vm *VM) runtimeError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	var frames []StackFrame
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.closure.Function
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(fn.Chunk.Lines) {
			line = int(fn.Chunk.Lines[f.ip-1])
		}
		name := "script"
		if fn.Name != nil {
			name = fn.Name.Chars + "()"
		}
		frames = append(frames, StackFrame{Name: name, SourceLine: line})
	}

	vm.lastErr = newRuntimeError(msg, frames)
	if vm.log != nil {
		vm.log.Errorw("runtime error", "message", msg)
	}
	vm.resetStack()
}

// --- calling ---

func (vm *VM) callValue(callee value.Value, argCount int) bool {
	if callee.IsObj() {
		switch o := callee.AsObj().(type) {
		case *object.BoundMethod:
			vm.stack[vm.stackTop-argCount-1] = o.Receiver
			return vm.call(o.Method, argCount)
		case *object.Class:
			vm.stack[vm.stackTop-argCount-1] = value.ObjVal(vm.gc.NewInstance(o))
			if initializer, ok := o.Methods.Get(vm.gc.InternString("init")); ok {
				return vm.call(object.AsClosure(initializer), argCount)
			}
			if argCount != 0 {
				vm.runtimeError("Expected 0 arguments but got %d.", argCount)
				return false
			}
			return true
		case *object.Closure:
			return vm.call(o, argCount)
		case *object.Native:
			args := vm.stack[vm.stackTop-argCount : vm.stackTop]
			result, ok := o.Fn(args)
			vm.stackTop -= argCount + 1
			if !ok {
				vm.runtimeError("%s", object.Stringify(result))
				return false
			}
			vm.push(result)
			return true
		}
	}
	vm.runtimeError("Can only call functions and classes.")
	return false
}

func (vm *VM) call(closure *object.Closure, argCount int) bool {
	if argCount != closure.Function.Arity {
		vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if vm.frameCount == framesMax {
		vm.runtimeError("Stack overflow.")
		return false
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slots = vm.stackTop - argCount - 1
	return true
}

func (vm *VM) invoke(name *object.String, argCount int) bool {
	receiver := vm.peek(argCount)
	if !receiver.IsObjType(value.ObjTypeInstance) {
		vm.runtimeError("Only instances have methods.")
		return false
	}
	instance := object.AsInstance(receiver)

	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *object.Class, name *object.String, argCount int) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	return vm.call(object.AsClosure(method), argCount)
}

func (vm *VM) bindMethod(class *object.Class, name *object.String) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	bound := vm.gc.NewBoundMethod(vm.peek(0), object.AsClosure(method))
	vm.pop()
	vm.push(value.ObjVal(bound))
	return true
}

func (vm *VM) defineMethod(name *object.String) {
	method := vm.peek(0)
	class := object.AsClass(vm.peek(1))
	class.Methods.Set(name, method)
	vm.pop()
}

// --- upvalues ---

// addrOf gives a stable ordering key for a slot pointer so open upvalues
// can be kept sorted by descending stack address, the same way clox walks
// its linked list by raw pointer comparison. Safe here because vm.stack is
// a fixed-size array field, never reallocated or moved for the VM's life.
func addrOf(p *value.Value) uintptr { return uintptr(unsafe.Pointer(p)) }

func (vm *VM) captureUpvalue(local *value.Value) *object.Upvalue {
	var prev *object.Upvalue
	uv := vm.openUpvalues
	for uv != nil && addrOf(uv.Location) > addrOf(local) {
		prev = uv
		uv = uv.Next
	}
	if uv != nil && uv.Location == local {
		return uv
	}

	created := vm.gc.NewUpvalue(local)
	created.Next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

func (vm *VM) closeUpvalues(last *value.Value) {
	for vm.openUpvalues != nil && addrOf(vm.openUpvalues.Location) >= addrOf(last) {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}

// --- dispatch loop ---

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.closure.Function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) int {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant(frame *CallFrame) value.Value {
	return frame.closure.Function.Chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readStringConst(frame *CallFrame) *object.String {
	return object.AsString(vm.readConstant(frame))
}

func (vm *VM) concatenate() {
	b := object.AsString(vm.peek(0))
	a := object.AsString(vm.peek(1))
	result := vm.gc.InternString(a.Chars + b.Chars)
	vm.pop()
	vm.pop()
	vm.push(value.ObjVal(result))
}

func (vm *VM) run() (InterpretResult, error) {
	frame := &vm.frames[vm.frameCount-1]

	for {
		if vm.traceExecution && vm.log != nil {
			line, _ := debug.DisassembleInstruction(frame.closure.Function.Chunk, frame.ip)
			vm.log.Debugf("trace %s", line)
		}

		instr := bytecode.OpCode(vm.readByte(frame))
		switch instr {
		case bytecode.OpConstant:
			vm.push(vm.readConstant(frame))

		case bytecode.OpNil:
			vm.push(value.NilValue())
		case bytecode.OpTrue:
			vm.push(value.BoolValue(true))
		case bytecode.OpFalse:
			vm.push(value.BoolValue(false))
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := vm.readByte(frame)
			vm.push(vm.stack[frame.slots+int(slot)])
		case bytecode.OpSetLocal:
			slot := vm.readByte(frame)
			vm.stack[frame.slots+int(slot)] = vm.peek(0)

		case bytecode.OpGetGlobal:
			name := vm.readStringConst(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError, vm.lastErr
			}
			vm.push(v)
		case bytecode.OpDefineGlobal:
			name := vm.readStringConst(frame)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OpSetGlobal:
			name := vm.readStringConst(frame)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError, vm.lastErr
			}

		case bytecode.OpGetUpvalue:
			idx := vm.readByte(frame)
			vm.push(*frame.closure.Upvalues[idx].Location)
		case bytecode.OpSetUpvalue:
			idx := vm.readByte(frame)
			*frame.closure.Upvalues[idx].Location = vm.peek(0)

		case bytecode.OpGetProperty:
			if !vm.peek(0).IsObjType(value.ObjTypeInstance) {
				vm.runtimeError("Only instances have properties.")
				return InterpretRuntimeError, vm.lastErr
			}
			instance := object.AsInstance(vm.peek(0))
			name := vm.readStringConst(frame)
			if v, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
			} else if !vm.bindMethod(instance.Class, name) {
				return InterpretRuntimeError, vm.lastErr
			}
		case bytecode.OpSetProperty:
			if !vm.peek(1).IsObjType(value.ObjTypeInstance) {
				vm.runtimeError("Only instances have fields.")
				return InterpretRuntimeError, vm.lastErr
			}
			instance := object.AsInstance(vm.peek(1))
			name := vm.readStringConst(frame)
			instance.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)
		case bytecode.OpGetSuper:
			name := vm.readStringConst(frame)
			superclass := object.AsClass(vm.pop())
			if !vm.bindMethod(superclass, name) {
				return InterpretRuntimeError, vm.lastErr
			}

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.BoolValue(value.Equal(a, b)))
		case bytecode.OpGreater, bytecode.OpLess:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				vm.runtimeError("Operands must be numbers.")
				return InterpretRuntimeError, vm.lastErr
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			if instr == bytecode.OpGreater {
				vm.push(value.BoolValue(a > b))
			} else {
				vm.push(value.BoolValue(a < b))
			}

		case bytecode.OpAdd:
			switch {
			case vm.peek(0).IsObjType(value.ObjTypeString) && vm.peek(1).IsObjType(value.ObjTypeString):
				vm.concatenate()
			case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
				b := vm.pop().AsNumber()
				a := vm.pop().AsNumber()
				vm.push(value.NumberValue(a + b))
			default:
				vm.runtimeError("Operands must be two numbers or two strings.")
				return InterpretRuntimeError, vm.lastErr
			}
		case bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				vm.runtimeError("Operands must be numbers.")
				return InterpretRuntimeError, vm.lastErr
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			switch instr {
			case bytecode.OpSubtract:
				vm.push(value.NumberValue(a - b))
			case bytecode.OpMultiply:
				vm.push(value.NumberValue(a * b))
			case bytecode.OpDivide:
				vm.push(value.NumberValue(a / b))
			}

		case bytecode.OpNot:
			vm.push(value.BoolValue(value.IsFalsy(vm.pop())))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
				return InterpretRuntimeError, vm.lastErr
			}
			vm.push(value.NumberValue(-vm.pop().AsNumber()))

		case bytecode.OpPrint:
			fmt.Println(object.Stringify(vm.pop()))

		case bytecode.OpJump:
			offset := vm.readShort(frame)
			frame.ip += offset
		case bytecode.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if value.IsFalsy(vm.peek(0)) {
				frame.ip += offset
			}
		case bytecode.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= offset

		case bytecode.OpCall:
			argCount := int(vm.readByte(frame))
			if !vm.callValue(vm.peek(argCount), argCount) {
				return InterpretRuntimeError, vm.lastErr
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpInvoke:
			name := vm.readStringConst(frame)
			argCount := int(vm.readByte(frame))
			if !vm.invoke(name, argCount) {
				return InterpretRuntimeError, vm.lastErr
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpSuperInvoke:
			name := vm.readStringConst(frame)
			argCount := int(vm.readByte(frame))
			superclass := object.AsClass(vm.pop())
			if !vm.invokeFromClass(superclass, name, argCount) {
				return InterpretRuntimeError, vm.lastErr
			}
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClosure:
			fn := object.AsFunction(vm.readConstant(frame))
			closure := vm.gc.NewClosure(fn)
			vm.push(value.ObjVal(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				index := vm.readByte(frame)
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.slots+int(index)])
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.slots])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOk, nil
			}
			vm.stackTop = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case bytecode.OpClass:
			name := vm.readStringConst(frame)
			vm.push(value.ObjVal(vm.gc.NewClass(name)))
		case bytecode.OpInherit:
			superclassVal := vm.peek(1)
			if !superclassVal.IsObjType(value.ObjTypeClass) {
				vm.runtimeError("Superclass must be a class.")
				return InterpretRuntimeError, vm.lastErr
			}
			superclass := object.AsClass(superclassVal)
			subclass := object.AsClass(vm.peek(0))
			if st, ok := superclass.Methods.(*table.Table); ok {
				st.AddAllTo(subclass.Methods)
			}
			vm.pop()
		case bytecode.OpMethod:
			vm.defineMethod(vm.readStringConst(frame))

		default:
			vm.runtimeError("Unknown opcode %d.", instr)
			return InterpretRuntimeError, vm.lastErr
		}
	}
}
