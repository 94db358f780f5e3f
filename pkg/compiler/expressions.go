package compiler

import (
	"strconv"

	"github.com/kristofer/lox/pkg/bytecode"
	"github.com/kristofer/lox/pkg/lexer"
	"github.com/kristofer/lox/pkg/value"
)

func (c *Compiler) number(_ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.NumberValue(n))
}

func (c *Compiler) string(_ bool) {
	// Lexeme includes the surrounding quotes.
	raw := c.previous.Lexeme
	s := raw[1 : len(raw)-1]
	c.emitConstant(value.ObjVal(c.gc.InternString(s)))
}

func (c *Compiler) literal(_ bool) {
	switch c.previous.Type {
	case lexer.TokenFalse:
		c.emitOp(bytecode.OpFalse)
	case lexer.TokenTrue:
		c.emitOp(bytecode.OpTrue)
	case lexer.TokenNil:
		c.emitOp(bytecode.OpNil)
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	opType := c.previous.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case lexer.TokenBang:
		c.emitOp(bytecode.OpNot)
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpNegate)
	}
}

func (c *Compiler) binary(_ bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case lexer.TokenBangEqual:
		c.emitOps(bytecode.OpEqual, bytecode.OpNot)
	case lexer.TokenEqualEqual:
		c.emitOp(bytecode.OpEqual)
	case lexer.TokenGreater:
		c.emitOp(bytecode.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOps(bytecode.OpLess, bytecode.OpNot)
	case lexer.TokenLess:
		c.emitOp(bytecode.OpLess)
	case lexer.TokenLessEqual:
		c.emitOps(bytecode.OpGreater, bytecode.OpNot)
	case lexer.TokenPlus:
		c.emitOp(bytecode.OpAdd)
	case lexer.TokenMinus:
		c.emitOp(bytecode.OpSubtract)
	case lexer.TokenStar:
		c.emitOp(bytecode.OpMultiply)
	case lexer.TokenSlash:
		c.emitOp(bytecode.OpDivide)
	}
}

func (c *Compiler) and(_ bool) {
	endJump := c.emitJump(bytecode.OpJumpIfFalse)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(_ bool) {
	elseJump := c.emitJump(bytecode.OpJumpIfFalse)
	endJump := c.emitJump(bytecode.OpJump)
	c.patchJump(elseJump)
	c.emitOp(bytecode.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(_ bool) {
	argCount := c.argumentList()
	c.emitOpByte(bytecode.OpCall, argCount)
}

func (c *Compiler) argumentList() byte {
	var count int
	if !c.check(lexer.TokenRightParen) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after arguments.")
	return byte(count)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(lexer.TokenIdentifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Lexeme)

	switch {
	case canAssign && c.match(lexer.TokenEqual):
		c.expression()
		c.emitOpByte(bytecode.OpSetProperty, name)
	case c.match(lexer.TokenLeftParen):
		argCount := c.argumentList()
		c.emitOpByte(bytecode.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpByte(bytecode.OpGetProperty, name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

func (c *Compiler) this(_ bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

func (c *Compiler) super(_ bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(lexer.TokenDot, "Expect '.' after 'super'.")
	c.consume(lexer.TokenIdentifier, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Lexeme)

	c.namedVariable("this", false)
	if c.match(lexer.TokenLeftParen) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOpByte(bytecode.OpSuperInvoke, name)
		c.emitByte(argCount)
	} else {
		c.namedVariable("super", false)
		c.emitOpByte(bytecode.OpGetSuper, name)
	}
}

// namedVariable resolves name as local, then upvalue, then global, and
// emits the matching get/set pair — consuming a trailing `=` only when
// canAssign permits it (this is shared by plain identifier reads/writes
// and the synthetic `this`/`super` lookups above, which always pass
// canAssign=false since you can't assign to them).
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp bytecode.OpCode
	idx, ok := c.resolveLocal(c.fn, name)
	if ok {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	} else if idx, ok = c.resolveUpvalue(c.fn, name); ok {
		getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
	} else {
		idx = int(c.identifierConstant(name))
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitOpByte(setOp, byte(idx))
	} else {
		c.emitOpByte(getOp, byte(idx))
	}
}
