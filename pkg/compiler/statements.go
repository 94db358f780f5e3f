package compiler

import (
	"github.com/kristofer/lox/pkg/bytecode"
	"github.com/kristofer/lox/pkg/lexer"
	"github.com/kristofer/lox/pkg/value"
)

// --- scopes and locals ---

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	for c.fn.localCount > 0 && c.fn.locals[c.fn.localCount-1].depth > c.fn.scopeDepth {
		if c.fn.locals[c.fn.localCount-1].isCaptured {
			c.emitOp(bytecode.OpCloseUpvalue)
		} else {
			c.emitOp(bytecode.OpPop)
		}
		c.fn.localCount--
	}
}

func (c *Compiler) addLocal(name string) {
	if c.fn.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fn.locals[c.fn.localCount] = localVar{name: name, depth: -1}
	c.fn.localCount++
}

func (c *Compiler) declareVariable() {
	if c.fn.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := c.fn.localCount - 1; i >= 0; i-- {
		local := c.fn.locals[i]
		if local.depth != -1 && local.depth < c.fn.scopeDepth {
			break
		}
		if local.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[c.fn.localCount-1].depth = c.fn.scopeDepth
}

// parseVariable consumes an identifier and, for a global, returns its
// constant-pool name index; for a local it declares the variable and
// returns 0 (unused by defineVariable in that case).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(lexer.TokenIdentifier, errMsg)
	c.declareVariable()
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Lexeme)
}

func (c *Compiler) defineVariable(global byte) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(bytecode.OpDefineGlobal, global)
}

func (c *Compiler) resolveLocal(fs *funcState, name string) (int, bool) {
	for i := fs.localCount - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue walks outward through enclosing function states looking
// for name as a local; the first one that finds it marks that local
// captured and every intervening funcState gets an upvalue entry chaining
// back to it, deduplicated by (index, isLocal).
func (c *Compiler) resolveUpvalue(fs *funcState, name string) (int, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if idx, ok := c.resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[idx].isCaptured = true
		return c.addUpvalue(fs, byte(idx), true), true
	}
	if idx, ok := c.resolveUpvalue(fs.enclosing, name); ok {
		return c.addUpvalue(fs, byte(idx), false), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i := 0; i < fs.upvalueCount; i++ {
		u := fs.upvalues[i]
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if fs.upvalueCount == maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues[fs.upvalueCount] = upvalueRef{index: index, isLocal: isLocal}
	fs.upvalueCount++
	return fs.upvalueCount - 1
}

// --- declarations ---

func (c *Compiler) declaration() {
	switch {
	case c.match(lexer.TokenClass):
		c.classDeclaration()
	case c.match(lexer.TokenFun):
		c.funDeclaration()
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != lexer.TokenEOF {
		if c.previous.Type == lexer.TokenSemicolon {
			return
		}
		switch c.current.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		c.advance()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(lexer.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(bytecode.OpNil)
	}
	c.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(typeFunction)
	c.defineVariable(global)
}

func (c *Compiler) function(t fnType) {
	c.beginFunction(t, c.previous.Lexeme)
	c.beginScope()

	c.consume(lexer.TokenLeftParen, "Expect '(' after function name.")
	if !c.check(lexer.TokenRightParen) {
		for {
			c.fn.function.Arity++
			if c.fn.function.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after parameters.")
	c.consume(lexer.TokenLeftBrace, "Expect '{' before function body.")
	c.block()

	fs := c.fn
	fn := c.endFunction()

	idx := c.makeConstant(value.ObjVal(fn))
	c.emitOpByte(bytecode.OpClosure, idx)
	for i := 0; i < fs.upvalueCount; i++ {
		if fs.upvalues[i].isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(fs.upvalues[i].index)
	}
}

func (c *Compiler) classDeclaration() {
	c.consume(lexer.TokenIdentifier, "Expect class name.")
	nameTok := c.previous
	nameConst := c.identifierConstant(nameTok.Lexeme)
	c.declareVariable()

	c.emitOpByte(bytecode.OpClass, nameConst)
	c.defineVariable(nameConst)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(lexer.TokenLess) {
		c.consume(lexer.TokenIdentifier, "Expect superclass name.")
		c.variable(false)
		if nameTok.Lexeme == c.previous.Lexeme {
			c.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(nameTok.Lexeme, false)
		c.emitOp(bytecode.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(nameTok.Lexeme, false)
	c.consume(lexer.TokenLeftBrace, "Expect '{' before class body.")
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.method()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after class body.")
	c.emitOp(bytecode.OpPop) // the class itself, left by namedVariable above

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = c.class.enclosing
}

func (c *Compiler) method() {
	c.consume(lexer.TokenIdentifier, "Expect method name.")
	name := c.previous.Lexeme
	nameConst := c.identifierConstant(name)

	t := typeMethod
	if name == "init" {
		t = typeInitializer
	}
	c.function(t)
	c.emitOpByte(bytecode.OpMethod, nameConst)
}

// --- statements ---

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.TokenPrint):
		c.printStatement()
	case c.match(lexer.TokenFor):
		c.forStatement()
	case c.match(lexer.TokenIf):
		c.ifStatement()
	case c.match(lexer.TokenReturn):
		c.returnStatement()
	case c.match(lexer.TokenWhile):
		c.whileStatement()
	case c.match(lexer.TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	c.emitOp(bytecode.OpPrint)
}

func (c *Compiler) returnStatement() {
	if c.fn.fnType == typeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(lexer.TokenSemicolon) {
		c.emitReturn()
		return
	}
	if c.fn.fnType == typeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after return value.")
	c.emitOp(bytecode.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()

	elseJump := c.emitJump(bytecode.OpJump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop)

	if c.match(lexer.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(lexer.TokenSemicolon):
		// no initializer
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(lexer.TokenSemicolon) {
		c.expression()
		c.consume(lexer.TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(bytecode.OpJumpIfFalse)
		c.emitOp(bytecode.OpPop)
	}

	if !c.match(lexer.TokenRightParen) {
		bodyJump := c.emitJump(bytecode.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(bytecode.OpPop)
		c.consume(lexer.TokenRightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(bytecode.OpPop)
	}

	c.endScope()
}
