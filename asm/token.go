package asm

import (
	"fmt"
	"strconv"

	"github.com/ezrec/regvm/cpu"
)

// TokenKind is the lexical class of a token.
type TokenKind int

//go:generate go tool stringer -linecomment -type=TokenKind
const (
	TOKEN_OP                = TokenKind(0) // opcode
	TOKEN_REGISTER          = TokenKind(1) // register
	TOKEN_INTEGER           = TokenKind(2) // integer
	TOKEN_FLOAT             = TokenKind(3) // float
	TOKEN_LABEL_DECLARATION = TokenKind(4) // label declaration
	TOKEN_LABEL_USAGE       = TokenKind(5) // label usage
	TOKEN_DIRECTIVE         = TokenKind(6) // directive
	TOKEN_STRING            = TokenKind(7) // string
	TOKEN_COMMENT           = TokenKind(8) // comment
	TOKEN_EXPRESSION        = TokenKind(9) // expression
)

// Position is a location in assembly source text.
type Position struct {
	Offset int // Byte offset, from 0.
	Line   int // Line number, from 1.
	Column int // Column in runes, from 1.
}

func (pos Position) String() string {
	return fmt.Sprintf("%d:%d", pos.Line, pos.Column)
}

// Token is a single lexical unit of assembly source.
// Only the field matching Kind is meaningful.
type Token struct {
	Kind     TokenKind
	Pos      Position
	Opcode   cpu.Opcode // TOKEN_OP
	Register uint8      // TOKEN_REGISTER
	Integer  int32      // TOKEN_INTEGER
	Float    float32    // TOKEN_FLOAT
	Text     string     // Names, string content, expression source.
}

// MakeOp creates an opcode token.
func MakeOp(op cpu.Opcode) Token {
	return Token{Kind: TOKEN_OP, Opcode: op}
}

// MakeRegister creates a register token.
func MakeRegister(reg uint8) Token {
	return Token{Kind: TOKEN_REGISTER, Register: reg}
}

// MakeInteger creates an integer operand token.
func MakeInteger(value int32) Token {
	return Token{Kind: TOKEN_INTEGER, Integer: value}
}

// MakeFloat creates a float operand token.
func MakeFloat(value float32) Token {
	return Token{Kind: TOKEN_FLOAT, Float: value}
}

// MakeText creates a token of a text carrying kind: label declaration,
// label usage, directive, string or expression.
func MakeText(kind TokenKind, text string) Token {
	return Token{Kind: kind, Text: text}
}

// MakeComment creates a comment token.
func MakeComment() Token {
	return Token{Kind: TOKEN_COMMENT}
}

// String returns the token as it would appear in source.
func (tok Token) String() string {
	switch tok.Kind {
	case TOKEN_OP:
		return tok.Opcode.String()
	case TOKEN_REGISTER:
		return fmt.Sprintf("$%d", tok.Register)
	case TOKEN_INTEGER:
		return strconv.FormatInt(int64(tok.Integer), 10)
	case TOKEN_FLOAT:
		return strconv.FormatFloat(float64(tok.Float), 'g', -1, 32)
	case TOKEN_LABEL_DECLARATION:
		return tok.Text + ":"
	case TOKEN_LABEL_USAGE:
		return tok.Text
	case TOKEN_DIRECTIVE:
		return "." + tok.Text
	case TOKEN_STRING:
		return `"` + tok.Text + `"`
	case TOKEN_COMMENT:
		return ";"
	case TOKEN_EXPRESSION:
		return "$(" + tok.Text + ")"
	}
	return tok.Kind.String()
}

// Operand returns true for tokens that may appear as instruction operands.
func (tok Token) Operand() bool {
	switch tok.Kind {
	case TOKEN_REGISTER, TOKEN_INTEGER, TOKEN_FLOAT, TOKEN_LABEL_USAGE, TOKEN_EXPRESSION:
		return true
	}
	return false
}
