package compiler

import "github.com/kristofer/lox/pkg/lexer"

// precedence is the Pratt parser's precedence ladder, ascending.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.TokenLeftParen:    {(*Compiler).grouping, (*Compiler).call, precCall},
		lexer.TokenRightParen:   {nil, nil, precNone},
		lexer.TokenLeftBrace:    {nil, nil, precNone},
		lexer.TokenRightBrace:   {nil, nil, precNone},
		lexer.TokenComma:        {nil, nil, precNone},
		lexer.TokenDot:          {nil, (*Compiler).dot, precCall},
		lexer.TokenMinus:        {(*Compiler).unary, (*Compiler).binary, precTerm},
		lexer.TokenPlus:         {nil, (*Compiler).binary, precTerm},
		lexer.TokenSemicolon:    {nil, nil, precNone},
		lexer.TokenSlash:        {nil, (*Compiler).binary, precFactor},
		lexer.TokenStar:         {nil, (*Compiler).binary, precFactor},
		lexer.TokenBang:         {(*Compiler).unary, nil, precNone},
		lexer.TokenBangEqual:    {nil, (*Compiler).binary, precEquality},
		lexer.TokenEqual:        {nil, nil, precNone},
		lexer.TokenEqualEqual:   {nil, (*Compiler).binary, precEquality},
		lexer.TokenGreater:      {nil, (*Compiler).binary, precComparison},
		lexer.TokenGreaterEqual: {nil, (*Compiler).binary, precComparison},
		lexer.TokenLess:         {nil, (*Compiler).binary, precComparison},
		lexer.TokenLessEqual:    {nil, (*Compiler).binary, precComparison},
		lexer.TokenIdentifier:   {(*Compiler).variable, nil, precNone},
		lexer.TokenString:       {(*Compiler).string, nil, precNone},
		lexer.TokenNumber:       {(*Compiler).number, nil, precNone},
		lexer.TokenAnd:          {nil, (*Compiler).and, precAnd},
		lexer.TokenClass:        {nil, nil, precNone},
		lexer.TokenElse:         {nil, nil, precNone},
		lexer.TokenFalse:        {(*Compiler).literal, nil, precNone},
		lexer.TokenFor:          {nil, nil, precNone},
		lexer.TokenFun:          {nil, nil, precNone},
		lexer.TokenIf:           {nil, nil, precNone},
		lexer.TokenNil:          {(*Compiler).literal, nil, precNone},
		lexer.TokenOr:           {nil, (*Compiler).or, precOr},
		lexer.TokenPrint:        {nil, nil, precNone},
		lexer.TokenReturn:       {nil, nil, precNone},
		lexer.TokenSuper:        {(*Compiler).super, nil, precNone},
		lexer.TokenThis:         {(*Compiler).this, nil, precNone},
		lexer.TokenTrue:         {(*Compiler).literal, nil, precNone},
		lexer.TokenVar:          {nil, nil, precNone},
		lexer.TokenWhile:        {nil, nil, precNone},
		lexer.TokenEOF:          {nil, nil, precNone},
		lexer.TokenError:        {nil, nil, precNone},
	}
}

func getRule(t lexer.TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{}
}

// parsePrecedence is the heart of the Pratt parser: it parses a prefix
// expression then repeatedly folds in infix operators whose precedence is
// at least prec. canAssign gates whether prefix parsers for assignable
// targets (identifiers, properties) are allowed to consume a trailing `=`.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}
