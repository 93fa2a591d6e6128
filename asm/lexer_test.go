package asm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/regvm/cpu"
)

// unplaced clears token positions, for comparison against constructed tokens.
func unplaced(tokens []Token) []Token {
	for n := range tokens {
		tokens[n].Pos = Position{}
	}
	return tokens
}

func TestTokenize(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		text     string
		expected []Token
	}{
		{"", nil},
		{"   \n\t ", nil},
		{"load $6 1024", []Token{MakeOp(cpu.LOAD), MakeRegister(6), MakeInteger(1024)}},
		{"LOAD r6 -5", []Token{MakeOp(cpu.LOAD), MakeRegister(6), MakeInteger(-5)}},
		{"Halt", []Token{MakeOp(cpu.HLT)}},
		{"hlt", []Token{MakeOp(cpu.HLT)}},
		{"add $0 $1 $2", []Token{MakeOp(cpu.ADD), MakeRegister(0), MakeRegister(1), MakeRegister(2)}},
		{"3.5 -0.25 1e3", []Token{MakeFloat(3.5), MakeFloat(-0.25), MakeFloat(1000)}},
		{"start: jmp start", []Token{MakeText(TOKEN_LABEL_DECLARATION, "start"), MakeOp(cpu.JMP), MakeText(TOKEN_LABEL_USAGE, "start")}},
		{"address", []Token{MakeText(TOKEN_LABEL_USAGE, "address")}},
		{"loads", []Token{MakeText(TOKEN_LABEL_USAGE, "loads")}},
		{"_x@1", []Token{MakeText(TOKEN_LABEL_USAGE, "_x@1")}},
		{"rx", []Token{MakeText(TOKEN_LABEL_USAGE, "rx")}},
		{".data 12", []Token{MakeText(TOKEN_DIRECTIVE, "data"), MakeInteger(12)}},
		{`"hello world"`, []Token{MakeText(TOKEN_STRING, "hello world")}},
		{`""`, []Token{MakeText(TOKEN_STRING, "")}},
		{`"a;b"`, []Token{MakeText(TOKEN_STRING, "a;b")}},
		{"; just a comment", []Token{MakeComment()}},
		{"halt ; stop\nhalt", []Token{MakeOp(cpu.HLT), MakeComment(), MakeOp(cpu.HLT)}},
		{"$( (1 + 2) * 3 )", []Token{MakeText(TOKEN_EXPRESSION, "(1 + 2) * 3")}},
		{"$255", []Token{MakeRegister(255)}},
	}

	for _, entry := range table {
		tokens, err := Tokenize(entry.text)
		assert.NoError(err, entry.text)
		assert.Equal(entry.expected, unplaced(tokens), entry.text)
	}
}

func TestTokenizePosition(t *testing.T) {
	assert := assert.New(t)

	tokens, err := Tokenize("load $6 1024\n  halt")
	assert.NoError(err)
	assert.Equal([]Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 5, Line: 1, Column: 6},
		{Offset: 8, Line: 1, Column: 9},
		{Offset: 15, Line: 2, Column: 3},
	}, []Position{tokens[0].Pos, tokens[1].Pos, tokens[2].Pos, tokens[3].Pos})
	assert.Equal("2:3", tokens[3].Pos.String())
}

func TestTokenizeError(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		text string
		pos  Position
	}{
		{"add:", Position{Offset: 3, Line: 1, Column: 4}},
		{"load $256 1", Position{Offset: 5, Line: 1, Column: 6}},
		{"load r999 1", Position{Offset: 5, Line: 1, Column: 6}},
		{"$", Position{Offset: 0, Line: 1, Column: 1}},
		{"$3x", Position{Offset: 0, Line: 1, Column: 1}},
		{"12abc", Position{Offset: 0, Line: 1, Column: 1}},
		{"99999999999", Position{Offset: 0, Line: 1, Column: 1}},
		{"1.2.3", Position{Offset: 0, Line: 1, Column: 1}},
		{"-", Position{Offset: 0, Line: 1, Column: 1}},
		{"halt\n\"open", Position{Offset: 5, Line: 2, Column: 1}},
		{"$(1 + (2)", Position{Offset: 0, Line: 1, Column: 1}},
		{". data", Position{Offset: 0, Line: 1, Column: 1}},
		{"halt # nope", Position{Offset: 5, Line: 1, Column: 6}},
	}

	for _, entry := range table {
		tokens, err := Tokenize(entry.text)
		assert.Nil(tokens, entry.text)
		var lex *ErrLex
		if assert.True(errors.As(err, &lex), entry.text) {
			assert.Equal(entry.pos, lex.Pos, entry.text)
			assert.Equal(entry.pos, lex.Position(), entry.text)
		}
	}
}

func TestTokenString(t *testing.T) {
	assert := assert.New(t)

	text := `top: load $6 1024 .data 7 "str" $(top + 1) 1.5 top`
	tokens, err := Tokenize(text)
	assert.NoError(err)

	var words []string
	for _, tok := range tokens {
		words = append(words, tok.String())
	}
	assert.Equal([]string{"top:", "load", "$6", "1024", ".data", "7", `"str"`, "$(top + 1)", "1.5", "top"}, words)

	assert.True(MakeRegister(1).Operand())
	assert.True(MakeText(TOKEN_EXPRESSION, "1").Operand())
	assert.False(MakeOp(cpu.HLT).Operand())
	assert.False(MakeText(TOKEN_STRING, "").Operand())
	assert.Equal("label usage", TOKEN_LABEL_USAGE.String())
}

func FuzzTokenize(f *testing.F) {
	f.Add("load $6 1024")
	f.Add("top: jmp top ; loop")
	f.Add(`.data $(1 << 4) "text"`)
	f.Add("1.5e3 -7 r31")

	f.Fuzz(func(t *testing.T, text string) {
		tokens, err := Tokenize(text)
		if err != nil {
			var lex *ErrLex
			assert.True(t, errors.As(err, &lex))
			assert.Nil(t, tokens)
			assert.LessOrEqual(t, lex.Pos.Offset, len(text))
			return
		}

		offset := -1
		for _, tok := range tokens {
			assert.Greater(t, tok.Pos.Offset, offset)
			offset = tok.Pos.Offset
		}
	})
}
