// Package compiler implements the single-pass Pratt compiler: it consumes
// tokens directly from a lexer.Scanner and emits bytecode.Chunk contents,
// with no separate AST stage in between.
package compiler

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/kristofer/lox/pkg/bytecode"
	"github.com/kristofer/lox/pkg/gc"
	"github.com/kristofer/lox/pkg/lexer"
	"github.com/kristofer/lox/pkg/object"
	"github.com/kristofer/lox/pkg/value"
)

const maxLocals = 256
const maxUpvalues = 256

// fnType distinguishes what a funcState is compiling; it changes a few
// emission choices (implicit `this`/`return` handling).
type fnType int

const (
	typeFunction fnType = iota
	typeScript
	typeMethod
	typeInitializer
)

type localVar struct {
	name       string
	depth      int // -1 while declared-but-not-yet-initialized
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// funcState is one nested function's worth of compiler state — one per
// entry in the compiler chain the spec describes, linked via enclosing.
type funcState struct {
	enclosing *funcState
	function  *object.Function
	fnType    fnType

	locals     [maxLocals]localVar
	localCount int
	scopeDepth int

	upvalues     [maxUpvalues]upvalueRef
	upvalueCount int
}

type classState struct {
	enclosing      *classState
	hasSuperclass  bool
}

// Compiler is a single compile's worth of state: the token cursor, the
// chain of in-progress functions, and the chain of in-progress classes
// (for resolving `this`/`super`). It registers itself as a gc.RootProvider
// for the lifetime of Compile so that functions allocated mid-compile
// survive a collection triggered by, say, a long string of literals.
type Compiler struct {
	gc *gc.GC

	scanner *lexer.Scanner
	current, previous lexer.Token
	hadError, panicMode bool

	fn         *funcState
	class      *classState
}

// Compile parses and compiles source into a top-level function (the
// implicit "<script>" function whose Chunk is the program's entry point).
// Each parse/compile problem is reported to stderr as it is found (panic
// mode suppresses follow-on reports until the next statement boundary);
// if any were found, the returned error is a generic "compile error".
func Compile(g *gc.GC, source string) (*object.Function, error) {
	c := &Compiler{gc: g, scanner: lexer.New(source)}
	g.AddRoot(c)
	defer g.RemoveRoot(c)

	c.beginFunction(typeScript, "")
	c.advance()
	for !c.match(lexer.TokenEOF) {
		c.declaration()
	}
	fn := c.endFunction()
	c.consume(lexer.TokenEOF, "Expect end of expression.")

	if c.hadError {
		return nil, errors.New("compile error")
	}
	return fn, nil
}

// MarkRoots marks every function object anywhere in the compiler chain, so
// a GC triggered mid-compile (e.g. while interning many string constants)
// doesn't collect a function only reachable from compiler state.
func (c *Compiler) MarkRoots(g *gc.GC) {
	for f := c.fn; f != nil; f = f.enclosing {
		g.MarkObject(f.function)
	}
}

// --- function-state management ---

func (c *Compiler) beginFunction(t fnType, name string) {
	fn := c.gc.NewFunction()
	if t != typeScript {
		fn.Name = c.gc.InternString(name)
	}
	fs := &funcState{enclosing: c.fn, function: fn, fnType: t}
	// Slot 0 is reserved: `this` for methods/initializers, the called
	// closure itself for plain functions and the top-level script.
	if t == typeMethod || t == typeInitializer {
		fs.locals[0] = localVar{name: "this", depth: 0}
	} else {
		fs.locals[0] = localVar{name: "", depth: 0}
	}
	fs.localCount = 1
	c.fn = fs
}

func (c *Compiler) endFunction() *object.Function {
	c.emitReturn()
	fn := c.fn.function
	fn.UpvalueCount = c.fn.upvalueCount
	c.fn = c.fn.enclosing
	return fn
}

func (c *Compiler) chunk() *bytecode.Chunk { return c.fn.function.Chunk }

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.ScanToken()
		if c.current.Type != lexer.TokenError {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t lexer.TokenType) bool { return c.current.Type == t }

func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t lexer.TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.previous, message) }

func (c *Compiler) errorAt(tok lexer.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	fmt.Fprintf(os.Stderr, "[line %d] Error", tok.Line)
	switch {
	case tok.Type == lexer.TokenEOF:
		fmt.Fprint(os.Stderr, " at end")
	case tok.Type == lexer.TokenError:
		// no location to add; the message itself is the problem
	default:
		fmt.Fprintf(os.Stderr, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(os.Stderr, ": %s\n", message)
}

// --- emission helpers ---

func (c *Compiler) emitByte(b byte) { c.chunk().Write(b, c.previous.Line) }
func (c *Compiler) emitOp(op bytecode.OpCode) { c.emitByte(byte(op)) }
func (c *Compiler) emitOps(op1, op2 bytecode.OpCode) {
	c.emitOp(op1)
	c.emitOp(op2)
}
func (c *Compiler) emitOpByte(op bytecode.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	if c.fn.fnType == typeInitializer {
		c.emitOpByte(bytecode.OpGetLocal, 0)
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) emitConstant(v value.Value) {
	idx := c.makeConstant(v)
	c.emitOpByte(bytecode.OpConstant, idx)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx, err := c.chunk().AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(value.ObjVal(c.gc.InternString(name)))
}

// emitJump writes a jump opcode with a placeholder 16-bit operand and
// returns the offset of the first operand byte, to be patched later.
func (c *Compiler) emitJump(op bytecode.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}
