package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(source string) []Token {
	s := New(source)
	var toks []Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func TestSingleCharacterTokens(t *testing.T) {
	toks := scanAll("(){};,+-*/")
	want := []TokenType{
		TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace,
		TokenSemicolon, TokenComma, TokenPlus, TokenMinus, TokenStar, TokenSlash,
		TokenEOF,
	}
	require.Len(t, toks, len(want))
	for i, tt := range want {
		assert.Equal(t, tt, toks[i].Type, "token %d", i)
	}
}

func TestTwoCharacterOperators(t *testing.T) {
	toks := scanAll("! != = == < <= > >=")
	want := []TokenType{
		TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual, TokenEOF,
	}
	require.Len(t, toks, len(want))
	for i, tt := range want {
		assert.Equal(t, tt, toks[i].Type, "token %d", i)
	}
}

func TestStringLiteral(t *testing.T) {
	toks := scanAll(`"hello world"`)
	require.Len(t, toks, 2)
	assert.Equal(t, TokenString, toks[0].Type)
	assert.Equal(t, `"hello world"`, toks[0].Lexeme)
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(`"oops`)
	require.Len(t, toks, 2)
	assert.Equal(t, TokenError, toks[0].Type)
	assert.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestNumberLiteral(t *testing.T) {
	toks := scanAll("123 45.67")
	require.Len(t, toks, 3)
	assert.Equal(t, TokenNumber, toks[0].Type)
	assert.Equal(t, "123", toks[0].Lexeme)
	assert.Equal(t, TokenNumber, toks[1].Type)
	assert.Equal(t, "45.67", toks[1].Lexeme)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll("class fun this super nil myVar")
	want := []TokenType{
		TokenClass, TokenFun, TokenThis, TokenSuper, TokenNil, TokenIdentifier, TokenEOF,
	}
	require.Len(t, toks, len(want))
	for i, tt := range want {
		assert.Equal(t, tt, toks[i].Type, "token %d", i)
	}
}

func TestLineTrackingAcrossNewlines(t *testing.T) {
	toks := scanAll("var a = 1;\nvar b = 2;")
	// "var" on line 1, then a '=' 1, ';' 1, then line 2 tokens.
	assert.Equal(t, 1, toks[0].Line)
	last := toks[len(toks)-2] // ';' ending the second statement
	assert.Equal(t, 2, last.Line)
}

func TestCommentsAreSkipped(t *testing.T) {
	toks := scanAll("// a whole line comment\nvar x;")
	require.Len(t, toks, 4)
	assert.Equal(t, TokenVar, toks[0].Type)
	assert.Equal(t, 2, toks[0].Line)
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := scanAll("@")
	require.Len(t, toks, 2)
	assert.Equal(t, TokenError, toks[0].Type)
	assert.Equal(t, "Unexpected character.", toks[0].Lexeme)
}
